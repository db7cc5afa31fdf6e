package networks

import (
	"fmt"
	"sort"

	"simbrain/internal/nn"
)

type KwtaConfig struct {
	Size int
	K    int
	// Q places the threshold between the (k+1)-th and k-th highest currents.
	Q     float64
	Gain  float64
	Lower float64
	Upper float64
}

func DefaultKwtaConfig(size, k int) KwtaConfig {
	return KwtaConfig{
		Size:  size,
		K:     k,
		Q:     0.25,
		Gain:  100,
		Lower: 0,
		Upper: 1,
	}
}

// Kwta lets roughly k units become active each tick by moving one shared
// inhibitory threshold.
type Kwta struct {
	cfg       KwtaConfig
	net       *nn.Network
	neurons   []*nn.Neuron
	rule      *nn.PointRule
	external  []float64
	ranking   []int
	threshold float64
}

func NewKwta(net *nn.Network, cfg KwtaConfig) (*Kwta, error) {
	if cfg.Size < 2 {
		return nil, fmt.Errorf("%w: kwta needs at least 2 neurons", nn.ErrInvalidParameter)
	}
	if cfg.K < 1 || cfg.K > cfg.Size-1 {
		return nil, fmt.Errorf("%w: k=%d outside [1, %d]", nn.ErrInvalidParameter, cfg.K, cfg.Size-1)
	}
	if cfg.Q < 0 || cfg.Q > 1 {
		return nil, fmt.Errorf("%w: q=%f outside [0,1]", nn.ErrInvalidParameter, cfg.Q)
	}
	if cfg.Gain <= 0 {
		return nil, fmt.Errorf("%w: gain must be > 0", nn.ErrInvalidParameter)
	}
	if err := requireBounds(cfg.Lower, cfg.Upper); err != nil {
		return nil, err
	}
	net = orNewNetwork(net)
	rule := &nn.PointRule{Gain: cfg.Gain}
	neurons, err := addLayer(net, cfg.Size, func() nn.UpdateRule { return rule }, cfg.Lower, cfg.Upper)
	if err != nil {
		return nil, err
	}
	nn.LineLayout{Spacing: 50}.Apply(neurons)
	return &Kwta{
		cfg:      cfg,
		net:      net,
		neurons:  neurons,
		rule:     rule,
		external: make([]float64, cfg.Size),
	}, nil
}

func (k *Kwta) Network() *nn.Network  { return k.net }
func (k *Kwta) Neurons() []*nn.Neuron { return append([]*nn.Neuron(nil), k.neurons...) }
func (k *Kwta) K() int                { return k.cfg.K }
func (k *Kwta) Q() float64            { return k.cfg.Q }
func (k *Kwta) Threshold() float64    { return k.threshold }

// Ranking returns neuron indices ordered by excitatory current from the
// last tick, highest first.
func (k *Kwta) Ranking() []int {
	return append([]int(nil), k.ranking...)
}

// SetK clamps k into [1, n-1] and reports whether clamping happened.
func (k *Kwta) SetK(value int) bool {
	clamped := value
	if clamped < 1 {
		clamped = 1
	}
	if max := len(k.neurons) - 1; clamped > max {
		clamped = max
	}
	k.cfg.K = clamped
	return clamped != value
}

func (k *Kwta) SetQ(q float64) error {
	if q < 0 || q > 1 {
		return fmt.Errorf("%w: q=%f outside [0,1]", nn.ErrInvalidParameter, q)
	}
	k.cfg.Q = q
	return nil
}

// SetInputs adds an external excitatory current per neuron on top of the
// synaptic input.
func (k *Kwta) SetInputs(values []float64) error {
	if len(values) != len(k.neurons) {
		return fmt.Errorf("%w: input count mismatch: got=%d want=%d", nn.ErrInvalidParameter, len(values), len(k.neurons))
	}
	copy(k.external, values)
	return nil
}

func (k *Kwta) currents() []float64 {
	out := weightedInputs(k.neurons)
	for i := range out {
		out[i] += k.external[i]
	}
	return out
}

// Update computes the shared threshold from the k-th and (k+1)-th highest
// currents, writes every activation from it, then updates synapses.
func (k *Kwta) Update() {
	currents := k.currents()

	ranking := make([]int, len(currents))
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return currents[ranking[a]] > currents[ranking[b]]
	})
	k.ranking = ranking

	top := currents[ranking[k.cfg.K-1]]
	next := currents[ranking[k.cfg.K]]
	k.threshold = next + k.cfg.Q*(top-next)
	k.rule.Threshold = k.threshold

	values := make([]float64, len(k.neurons))
	for i, n := range k.neurons {
		if n.Clamped() {
			values[i] = n.Activation()
			continue
		}
		values[i] = k.rule.Activation(n, currents[i])
	}
	_ = nn.CommitActivations(k.neurons, values)
	k.net.UpdateSynapses()
	k.net.Advance()
}
