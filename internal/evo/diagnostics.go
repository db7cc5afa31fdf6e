package evo

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"simbrain/internal/model"
)

// summarize computes the current generation's fitness statistics over the
// finite scores; failed evaluations only show up in Failures.
func (p *Pool) summarize() model.GenerationDiagnostics {
	finite := make([]float64, 0, len(p.genomes))
	for _, g := range p.genomes {
		if f := g.Fitness(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			finite = append(finite, f)
		}
	}
	diag := model.GenerationDiagnostics{
		Generation: p.generation,
		Evaluated:  len(p.genomes),
		Failures:   len(p.failures),
		Survivors:  p.cfg.survivors(len(p.genomes)),
	}
	if len(finite) == 0 {
		return diag
	}
	diag.BestFitness = finite[0]
	diag.MinFitness = finite[0]
	for _, f := range finite[1:] {
		diag.BestFitness = math.Max(diag.BestFitness, f)
		diag.MinFitness = math.Min(diag.MinFitness, f)
	}
	if len(finite) > 1 {
		diag.MeanFitness, diag.StdFitness = stat.MeanStdDev(finite, nil)
	} else {
		diag.MeanFitness = finite[0]
	}
	return diag
}
