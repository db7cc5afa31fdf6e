package genotype

import (
	"fmt"
	"math"
)

// Crossover aligns the connection genes of a and b by innovation number.
// Matching genes are inherited from either parent at random; disjoint and
// excess genes come from the fitter parent, which also supplies the node
// genes and seeds the child's random stream. Unevaluated parents rank below
// evaluated ones; ties favor a.
func Crossover(a, b *Genome) (*Genome, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: crossover needs two parents", ErrInvalidGenome)
	}
	if a.inputs != b.inputs || a.outputs != b.outputs {
		return nil, fmt.Errorf("%w: crossover parents have different interfaces: %dx%d vs %dx%d", ErrInvalidGenome, a.inputs, a.outputs, b.inputs, b.outputs)
	}
	if a.table != b.table {
		return nil, fmt.Errorf("%w: crossover parents do not share an innovation table", ErrInvalidGenome)
	}

	fitter, other := a, b
	if rankFitness(b.fitness) > rankFitness(a.fitness) {
		fitter, other = b, a
	}
	byInnovation := make(map[int]ConnectionGene, len(other.conns))
	for _, c := range other.conns {
		byInnovation[c.Innovation] = c
	}

	child := fitter.Copy()
	for i, c := range child.conns {
		match, ok := byInnovation[c.Innovation]
		if !ok || fitter.rng.IntN(2) == 0 {
			continue
		}
		child.conns[i].Weight = match.Weight
		child.conns[i].Enabled = match.Enabled
	}
	return child, nil
}

func rankFitness(f float64) float64 {
	if math.IsNaN(f) {
		return math.Inf(-1)
	}
	return f
}
