package scape

import (
	"context"
	"fmt"

	"simbrain/internal/agent"
	"simbrain/internal/evo"
)

// Trace carries per-evaluation details alongside the fitness.
type Trace map[string]any

// Scape is a task an agent is scored on. Higher fitness is better.
type Scape interface {
	Name() string
	Inputs() int
	Outputs() int
	Evaluate(ctx context.Context, a *agent.Agent) (float64, Trace, error)
}

// EvalFunc adapts s to a pool evaluation callback.
func EvalFunc(s Scape) evo.EvalFunc {
	return func(ctx context.Context, a *agent.Agent) error {
		fitness, _, err := s.Evaluate(ctx, a)
		if err != nil {
			return err
		}
		a.SetFitness(fitness)
		return nil
	}
}

// FromName resolves a scape by name. The pattern scape reads its table
// from dataPath.
func FromName(name, dataPath string) (Scape, error) {
	switch NormalizeName(name) {
	case "xor":
		return XOR{}, nil
	case "pattern":
		if dataPath == "" {
			return nil, fmt.Errorf("pattern scape requires a data path")
		}
		return LoadPatternCSV(dataPath)
	default:
		return nil, fmt.Errorf("unsupported scape: %s", name)
	}
}

// cases runs every input row through a from rest and returns the outputs.
func cases(ctx context.Context, a *agent.Agent, inputs [][]float64, outputs int) ([][]float64, error) {
	if a.InputCount() != len(inputs[0]) || a.OutputCount() != outputs {
		return nil, fmt.Errorf("agent %d shape %dx%d does not fit scape %dx%d", a.ID(), a.InputCount(), a.OutputCount(), len(inputs[0]), outputs)
	}
	predictions := make([][]float64, 0, len(inputs))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a.Reset()
		out, err := a.Step(ctx, in)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, out)
	}
	return predictions, nil
}
