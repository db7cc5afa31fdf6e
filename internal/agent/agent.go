package agent

import (
	"context"
	"fmt"
	"math"

	"simbrain/internal/genotype"
	"simbrain/internal/nn"
)

// Agent is one evaluable instance of a genome: the genome plus the network
// expressed from it. Its fitness is unset until an evaluation assigns one;
// copying it onto the genome is left to the caller.
type Agent struct {
	genome    *genotype.Genome
	phenotype *genotype.Phenotype
	settle    int
	fitness   float64
}

// New expresses g. Each Step runs settle synchronous ticks; settle <= 0
// uses one tick per hidden node plus one, enough for a signal to cross any
// feed-forward path.
func New(g *genotype.Genome, settle int) (*Agent, error) {
	if g == nil {
		return nil, fmt.Errorf("genome is required")
	}
	p, err := g.BuildNetwork()
	if err != nil {
		return nil, fmt.Errorf("build genome %d: %w", g.ID(), err)
	}
	if settle <= 0 {
		settle = len(p.Hidden) + 1
	}
	return &Agent{genome: g, phenotype: p, settle: settle, fitness: math.NaN()}, nil
}

func (a *Agent) ID() int                        { return a.genome.ID() }
func (a *Agent) Genome() *genotype.Genome       { return a.genome }
func (a *Agent) Network() *nn.Network           { return a.phenotype.Network }
func (a *Agent) Phenotype() *genotype.Phenotype { return a.phenotype }
func (a *Agent) Settle() int                    { return a.settle }
func (a *Agent) Fitness() float64               { return a.fitness }
func (a *Agent) SetFitness(value float64)       { a.fitness = value }
func (a *Agent) InputCount() int                { return len(a.phenotype.Inputs) }
func (a *Agent) OutputCount() int               { return len(a.phenotype.Outputs) }

// Step clamps inputs onto the input neurons, settles the network and
// returns the output activations.
func (a *Agent) Step(ctx context.Context, inputs []float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != len(a.phenotype.Inputs) {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), len(a.phenotype.Inputs))
	}
	if err := nn.SetActivations(a.phenotype.Inputs, inputs); err != nil {
		return nil, err
	}
	for i := 0; i < a.settle; i++ {
		a.phenotype.Network.Update()
	}
	return nn.Activations(a.phenotype.Outputs), nil
}

// Reset clears every unclamped activation so the next Step starts from rest.
func (a *Agent) Reset() {
	a.phenotype.Network.ClearActivations()
}
