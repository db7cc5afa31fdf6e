package networks

import (
	"fmt"
	"math"
	"math/rand/v2"

	"simbrain/internal/nn"
)

type HopfieldConfig struct {
	Size      int
	Lower     float64
	Upper     float64
	Threshold float64
	Order     UpdateOrder
}

func DefaultHopfieldConfig(size int) HopfieldConfig {
	return HopfieldConfig{
		Size:  size,
		Lower: -1,
		Upper: 1,
		Order: RandomOrder,
	}
}

// Hopfield is a fully connected binary network with symmetric weights and
// no self connections.
type Hopfield struct {
	cfg     HopfieldConfig
	net     *nn.Network
	neurons []*nn.Neuron
	members map[*nn.Neuron]struct{}
	rng     *rand.Rand
}

// NewHopfield builds the network inside net, or a fresh network when net is
// nil. All weights start at zero.
func NewHopfield(net *nn.Network, cfg HopfieldConfig, rng *rand.Rand) (*Hopfield, error) {
	if cfg.Size < 1 {
		return nil, fmt.Errorf("%w: hopfield size must be > 0", nn.ErrInvalidParameter)
	}
	if err := requireBounds(cfg.Lower, cfg.Upper); err != nil {
		return nil, err
	}
	if err := requireRNG(rng); err != nil {
		return nil, err
	}
	switch cfg.Order {
	case Synchronous, RandomOrder, Sequential:
	default:
		return nil, fmt.Errorf("%w: unknown update order %d", nn.ErrInvalidParameter, int(cfg.Order))
	}

	net = orNewNetwork(net)
	rule := &nn.BinaryRule{Threshold: cfg.Threshold}
	neurons, err := addLayer(net, cfg.Size, func() nn.UpdateRule { return rule }, cfg.Lower, cfg.Upper)
	if err != nil {
		return nil, err
	}
	nn.GridLayout{HSpacing: 50, VSpacing: 50}.Apply(neurons)
	if _, err := nn.ConnectAllToAll(net, neurons, neurons, nn.AllToAll{}); err != nil {
		return nil, err
	}
	members := make(map[*nn.Neuron]struct{}, len(neurons))
	for _, n := range neurons {
		members[n] = struct{}{}
	}
	return &Hopfield{cfg: cfg, net: net, neurons: neurons, members: members, rng: rng}, nil
}

// internal returns the synapses from n to other members of the network.
func (h *Hopfield) internal(n *nn.Neuron) []*nn.Synapse {
	var out []*nn.Synapse
	for _, s := range n.FanOut() {
		if _, ok := h.members[s.Target()]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hopfield) Network() *nn.Network   { return h.net }
func (h *Hopfield) Neurons() []*nn.Neuron  { return append([]*nn.Neuron(nil), h.neurons...) }
func (h *Hopfield) Size() int              { return len(h.neurons) }
func (h *Hopfield) Config() HopfieldConfig { return h.cfg }

func (h *Hopfield) SetOrder(order UpdateOrder) {
	h.cfg.Order = order
}

// Update runs one tick in the configured order.
func (h *Hopfield) Update() {
	switch h.cfg.Order {
	case Synchronous:
		h.net.UpdateGroup(h.neurons)
		h.net.Advance()
	case Sequential:
		h.net.UpdateAsync(h.neurons)
	default:
		h.net.UpdateAsync(shuffled(h.neurons, h.rng))
	}
}

// Train applies one outer-product step to the current pattern. Activations
// are mapped to [-1, 1] through the network bounds first.
func (h *Hopfield) Train() {
	if h.cfg.Upper == h.cfg.Lower {
		return
	}
	for _, src := range h.neurons {
		a := nn.ScaleValue(src.Activation(), h.cfg.Upper, h.cfg.Lower)
		for _, s := range h.internal(src) {
			b := nn.ScaleValue(s.Target().Activation(), h.cfg.Upper, h.cfg.Lower)
			s.SetStrength(s.Strength() + a*b)
		}
	}
}

// RandomizeWeights draws symmetric weights rounded to {-1, 0, 1}.
func (h *Hopfield) RandomizeWeights() {
	for i, src := range h.neurons {
		for _, tar := range h.neurons[i+1:] {
			w := math.Round(h.rng.Float64()*2 - 1)
			h.setPair(src, tar, w)
		}
	}
}

func (h *Hopfield) setPair(a, b *nn.Neuron, w float64) {
	if s, ok := a.OutgoingTo(b); ok {
		s.SetStrength(w)
	}
	if s, ok := b.OutgoingTo(a); ok {
		s.SetStrength(w)
	}
}

// ClearWeights zeroes every weight.
func (h *Hopfield) ClearWeights() {
	for _, n := range h.neurons {
		for _, s := range h.internal(n) {
			s.SetStrength(0)
		}
	}
}

// Weight returns the strength from neuron i to neuron j.
func (h *Hopfield) Weight(i, j int) float64 {
	if s, ok := h.neurons[i].OutgoingTo(h.neurons[j]); ok {
		return s.Strength()
	}
	return 0
}

func (h *Hopfield) SetPattern(pattern []float64) error {
	return nn.SetActivations(h.neurons, pattern)
}

func (h *Hopfield) Pattern() []float64 {
	return nn.Activations(h.neurons)
}

// Energy is -1/2 * sum over i,j of w(i,j) * s(i) * s(j).
func (h *Hopfield) Energy() float64 {
	total := 0.0
	for _, src := range h.neurons {
		for _, s := range h.internal(src) {
			total += s.Strength() * src.Activation() * s.Target().Activation()
		}
	}
	return -total / 2
}
