// Package networks holds the update engines built on top of nn.Network:
// Hopfield, k-winner-take-all, self-organizing maps, winner-take-all, echo
// state networks and simple recurrent networks.
package networks

import (
	"fmt"
	"math/rand/v2"

	"simbrain/internal/nn"
)

// UpdateOrder selects how an engine walks its neurons within one tick.
type UpdateOrder int

const (
	// Synchronous buffers every new activation and commits them together.
	Synchronous UpdateOrder = iota
	// RandomOrder updates one neuron at a time in a fresh permutation per tick.
	RandomOrder
	// Sequential updates one neuron at a time in index order.
	Sequential
)

func (o UpdateOrder) String() string {
	switch o {
	case Synchronous:
		return "synchronous"
	case RandomOrder:
		return "random"
	case Sequential:
		return "sequential"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

func orNewNetwork(net *nn.Network) *nn.Network {
	if net == nil {
		return nn.NewNetwork()
	}
	return net
}

func requireRNG(rng *rand.Rand) error {
	if rng == nil {
		return fmt.Errorf("%w: rng is required", nn.ErrInvalidParameter)
	}
	return nil
}

func requireBounds(lower, upper float64) error {
	if lower >= upper {
		return fmt.Errorf("%w: lower bound %f must be below upper bound %f", nn.ErrInvalidParameter, lower, upper)
	}
	return nil
}

func addLayer(net *nn.Network, count int, factory nn.RuleFactory, lower, upper float64) ([]*nn.Neuron, error) {
	layer := net.AddNeurons(count, factory)
	for _, n := range layer {
		if err := n.SetBounds(lower, upper); err != nil {
			return nil, err
		}
	}
	return layer, nil
}

func shuffled(neurons []*nn.Neuron, rng *rand.Rand) []*nn.Neuron {
	out := append([]*nn.Neuron(nil), neurons...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func weightedInputs(neurons []*nn.Neuron) []float64 {
	out := make([]float64, len(neurons))
	for i, n := range neurons {
		out[i] = n.WeightedInput()
	}
	return out
}
