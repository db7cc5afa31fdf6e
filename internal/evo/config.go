package evo

import (
	"fmt"
	"runtime"
	"time"

	"simbrain/internal/genotype"
	"simbrain/internal/nn"
)

type Config struct {
	Inputs          int
	Outputs         int
	InstanceCount   int
	Seed            uint64
	EliminationRate float64
	Mutation        *genotype.MutationParams
	// Workers bounds concurrent evaluations; values below one mean one.
	Workers int
	// EvalTimeout, when positive, is the deadline for one Evaluate call.
	EvalTimeout time.Duration
	// CrossoverRate is the chance that a child is bred from two survivors
	// instead of copied from one.
	CrossoverRate float64
	// Settle is passed to agent.New for every evaluation.
	Settle int
}

func DefaultConfig() Config {
	return Config{
		Inputs:          2,
		Outputs:         1,
		InstanceCount:   100,
		Seed:            1,
		EliminationRate: 0.5,
		Mutation:        genotype.DefaultMutationParams(),
		Workers:         runtime.GOMAXPROCS(0),
	}
}

func (c *Config) validate() error {
	if c.Inputs < 1 || c.Outputs < 1 {
		return fmt.Errorf("%w: pool needs at least one input and one output", nn.ErrInvalidParameter)
	}
	if c.InstanceCount < 1 {
		return fmt.Errorf("%w: instance count must be > 0", nn.ErrInvalidParameter)
	}
	if c.EliminationRate < 0 || c.EliminationRate >= 1 {
		return fmt.Errorf("%w: elimination rate must be in [0, 1): %f", nn.ErrInvalidParameter, c.EliminationRate)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("%w: crossover rate must be in [0, 1]: %f", nn.ErrInvalidParameter, c.CrossoverRate)
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("%w: evaluation timeout must be >= 0", nn.ErrInvalidParameter)
	}
	if c.Mutation == nil {
		c.Mutation = genotype.DefaultMutationParams()
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c.Mutation.Validate()
}

// survivors is the number of genomes kept by elimination from a population
// of n: floor(n * (1 - rate)), at least one.
func (c Config) survivors(n int) int {
	keep := int(float64(n) * (1 - c.EliminationRate))
	return max(1, min(keep, n))
}
