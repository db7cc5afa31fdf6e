package nn

import (
	"fmt"
	"math/rand/v2"

	"simbrain/internal/randvar"
)

// AllToAll configures ConnectAllToAll. Weights, when set, draws each
// initial strength; otherwise every synapse starts at Strength.
type AllToAll struct {
	AllowSelf bool
	Strength  float64
	Weights   *randvar.Variate
}

func ConnectAllToAll(net *Network, src, tar []*Neuron, cfg AllToAll) ([]*Synapse, error) {
	var out []*Synapse
	for _, source := range src {
		for _, target := range tar {
			if source == target && !cfg.AllowSelf {
				continue
			}
			strength := cfg.Strength
			if cfg.Weights != nil {
				strength = cfg.Weights.Draw()
			}
			s, err := net.AddSynapse(source, target, strength)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// Sparse configures ConnectSparse. Each candidate pair is connected with
// probability Density; a connection is excitatory with probability
// ExcitatoryRatio and inhibitory otherwise.
type Sparse struct {
	Density         float64
	ExcitatoryRatio float64
	Excitatory      *randvar.Variate
	Inhibitory      *randvar.Variate
	AllowSelf       bool
}

func (c Sparse) validate() error {
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("%w: sparsity %f outside [0,1]", ErrInvalidParameter, c.Density)
	}
	if c.ExcitatoryRatio < 0 || c.ExcitatoryRatio > 1 {
		return fmt.Errorf("%w: excitatory ratio %f outside [0,1]", ErrInvalidParameter, c.ExcitatoryRatio)
	}
	return nil
}

func ConnectSparse(net *Network, src, tar []*Neuron, cfg Sparse, rng *rand.Rand) ([]*Synapse, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: rng is required", ErrInvalidParameter)
	}
	excitatory := cfg.Excitatory
	if excitatory == nil {
		excitatory = randvar.MustNew(randvar.Config{Kind: randvar.Uniform, Param1: 0, Param2: 1}, rng)
	}
	inhibitory := cfg.Inhibitory
	if inhibitory == nil {
		inhibitory = randvar.MustNew(randvar.Config{Kind: randvar.Uniform, Param1: -1, Param2: 0}, rng)
	}

	var out []*Synapse
	for _, source := range src {
		for _, target := range tar {
			if source == target && !cfg.AllowSelf {
				continue
			}
			if rng.Float64() >= cfg.Density {
				continue
			}
			var strength float64
			if rng.Float64() < cfg.ExcitatoryRatio {
				strength = excitatory.Draw()
			} else {
				strength = inhibitory.Draw()
			}
			s, err := net.AddSynapse(source, target, strength)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
