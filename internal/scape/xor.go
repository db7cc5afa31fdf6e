package scape

import (
	"context"

	"simbrain/internal/agent"
)

var (
	xorInputs  = [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	xorTargets = []float64{0, 1, 1, 0}
)

// XOR scores a 2x1 agent as 4 minus its summed squared error over the four
// cases, so a perfect agent scores 4.
type XOR struct{}

func (XOR) Name() string { return "xor" }
func (XOR) Inputs() int  { return 2 }
func (XOR) Outputs() int { return 1 }

func (XOR) Evaluate(ctx context.Context, a *agent.Agent) (float64, Trace, error) {
	predictions, err := cases(ctx, a, xorInputs, 1)
	if err != nil {
		return 0, nil, err
	}
	sse := 0.0
	flat := make([]float64, len(predictions))
	for i, out := range predictions {
		delta := out[0] - xorTargets[i]
		sse += delta * delta
		flat[i] = out[0]
	}
	return 4 - sse, Trace{"sse": sse, "predictions": flat, "cases": len(xorInputs)}, nil
}
