package networks

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"simbrain/internal/nn"
)

type WTAConfig struct {
	Size      int
	WinValue  float64
	LoseValue float64
	// UseRandom lets a uniformly chosen neuron win with probability
	// RandomProb on each tick.
	UseRandom  bool
	RandomProb float64
}

func DefaultWTAConfig(size int) WTAConfig {
	return WTAConfig{
		Size:       size,
		WinValue:   1,
		LoseValue:  0,
		RandomProb: 0.1,
	}
}

// WinnerTakeAll sets the neuron with the largest net input to WinValue and
// every other neuron to LoseValue.
type WinnerTakeAll struct {
	cfg     WTAConfig
	net     *nn.Network
	neurons []*nn.Neuron
	rng     *rand.Rand
	winner  int
}

func NewWinnerTakeAll(net *nn.Network, cfg WTAConfig, rng *rand.Rand) (*WinnerTakeAll, error) {
	if cfg.Size < 1 {
		return nil, fmt.Errorf("%w: winner-take-all size must be > 0", nn.ErrInvalidParameter)
	}
	if cfg.RandomProb < 0 || cfg.RandomProb > 1 {
		return nil, fmt.Errorf("%w: random probability %f outside [0,1]", nn.ErrInvalidParameter, cfg.RandomProb)
	}
	if err := requireRNG(rng); err != nil {
		return nil, err
	}
	lower, upper := cfg.LoseValue, cfg.WinValue
	if lower > upper {
		lower, upper = upper, lower
	}
	net = orNewNetwork(net)
	neurons, err := addLayer(net, cfg.Size, nil, lower, upper)
	if err != nil {
		return nil, err
	}
	nn.LineLayout{Spacing: 50}.Apply(neurons)
	return &WinnerTakeAll{cfg: cfg, net: net, neurons: neurons, rng: rng, winner: -1}, nil
}

func (w *WinnerTakeAll) Network() *nn.Network  { return w.net }
func (w *WinnerTakeAll) Neurons() []*nn.Neuron { return append([]*nn.Neuron(nil), w.neurons...) }
func (w *WinnerTakeAll) Config() WTAConfig     { return w.cfg }

// Winner returns the index of the last winner, or -1 before the first tick.
func (w *WinnerTakeAll) Winner() int { return w.winner }

func (w *WinnerTakeAll) SetUseRandom(use bool, prob float64) error {
	if prob < 0 || prob > 1 {
		return fmt.Errorf("%w: random probability %f outside [0,1]", nn.ErrInvalidParameter, prob)
	}
	w.cfg.UseRandom = use
	w.cfg.RandomProb = prob
	return nil
}

// Update picks the winner and commits the new activations.
func (w *WinnerTakeAll) Update() {
	if w.cfg.UseRandom && w.rng.Float64() < w.cfg.RandomProb {
		w.winner = w.rng.IntN(len(w.neurons))
	} else {
		w.winner = floats.MaxIdx(weightedInputs(w.neurons))
	}
	values := make([]float64, len(w.neurons))
	for i := range values {
		values[i] = w.cfg.LoseValue
	}
	values[w.winner] = w.cfg.WinValue
	_ = nn.CommitActivations(w.neurons, values)
	w.net.UpdateSynapses()
	w.net.Advance()
}
