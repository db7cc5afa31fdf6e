package networks

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"simbrain/internal/nn"
)

type SOMConfig struct {
	InputSize int
	Size      int

	Alpha                   float64
	AlphaDecayRate          float64
	InitNeighborhoodSize    float64
	NeighborhoodDecayAmount float64
	// UpdateInterval is the number of online ticks between decay steps.
	UpdateInterval int
	// BatchSize is the number of sweeps Train runs.
	BatchSize int
	// Spacing is the grid distance between neighboring map units.
	Spacing float64
}

func DefaultSOMConfig(inputSize, size int) SOMConfig {
	return SOMConfig{
		InputSize:               inputSize,
		Size:                    size,
		Alpha:                   0.6,
		AlphaDecayRate:          0.05,
		InitNeighborhoodSize:    100,
		NeighborhoodDecayAmount: 5,
		UpdateInterval:          50,
		BatchSize:               100,
		Spacing:                 50,
	}
}

// SOM is a self-organizing map: an input layer fully connected to a grid of
// map units whose incoming weights move toward the inputs they win.
type SOM struct {
	cfg    SOMConfig
	net    *nn.Network
	inputs []*nn.Neuron
	units  []*nn.Neuron
	rng    *rand.Rand

	alpha            float64
	neighborhoodSize float64
	epochs           int
	ticks            int
	winner           int
	training         [][]float64
}

func NewSOM(net *nn.Network, cfg SOMConfig, rng *rand.Rand) (*SOM, error) {
	if cfg.InputSize < 1 || cfg.Size < 1 {
		return nil, fmt.Errorf("%w: som input size and size must be > 0", nn.ErrInvalidParameter)
	}
	if cfg.Alpha < 0 || cfg.AlphaDecayRate < 0 {
		return nil, fmt.Errorf("%w: som learning rate and decay must be >= 0", nn.ErrInvalidParameter)
	}
	if cfg.InitNeighborhoodSize < 0 || cfg.NeighborhoodDecayAmount < 0 {
		return nil, fmt.Errorf("%w: som neighborhood size and decay must be >= 0", nn.ErrInvalidParameter)
	}
	if cfg.UpdateInterval < 1 || cfg.BatchSize < 1 {
		return nil, fmt.Errorf("%w: som update interval and batch size must be > 0", nn.ErrInvalidParameter)
	}
	if err := requireRNG(rng); err != nil {
		return nil, err
	}

	net = orNewNetwork(net)
	inputs := net.AddNeurons(cfg.InputSize, func() nn.UpdateRule { return nn.ClampedRule{} })
	for _, n := range inputs {
		n.SetClamped(true)
	}
	nn.LineLayout{Spacing: cfg.Spacing, OriginY: -2 * cfg.Spacing}.Apply(inputs)

	units, err := addLayer(net, cfg.Size, nil, 0, 1)
	if err != nil {
		return nil, err
	}
	nn.GridLayout{HSpacing: cfg.Spacing, VSpacing: cfg.Spacing}.Apply(units)
	if _, err := nn.ConnectAllToAll(net, inputs, units, nn.AllToAll{}); err != nil {
		return nil, err
	}

	s := &SOM{cfg: cfg, net: net, inputs: inputs, units: units, rng: rng}
	s.Reset()
	s.RandomizeIncomingWeights()
	return s, nil
}

func (s *SOM) Network() *nn.Network      { return s.net }
func (s *SOM) Inputs() []*nn.Neuron      { return append([]*nn.Neuron(nil), s.inputs...) }
func (s *SOM) Units() []*nn.Neuron       { return append([]*nn.Neuron(nil), s.units...) }
func (s *SOM) Alpha() float64            { return s.alpha }
func (s *SOM) NeighborhoodSize() float64 { return s.neighborhoodSize }
func (s *SOM) Epochs() int               { return s.epochs }
func (s *SOM) Winner() int               { return s.winner }

// Reset restores the learning rate and neighborhood to their initial values.
func (s *SOM) Reset() {
	s.alpha = s.cfg.Alpha
	s.neighborhoodSize = s.cfg.InitNeighborhoodSize
	s.epochs = 0
	s.ticks = 0
}

// RandomizeIncomingWeights draws every input weight uniformly from [0, 1).
func (s *SOM) RandomizeIncomingWeights() {
	for _, unit := range s.units {
		for _, syn := range unit.FanIn() {
			syn.SetStrength(s.rng.Float64())
		}
	}
}

// SetTrainingInputs stores the corpus used by Iterate and Train.
func (s *SOM) SetTrainingInputs(vectors [][]float64) error {
	for i, v := range vectors {
		if len(v) != len(s.inputs) {
			return fmt.Errorf("%w: training vector %d has %d values, want %d", nn.ErrInvalidParameter, i, len(v), len(s.inputs))
		}
	}
	s.training = make([][]float64, len(vectors))
	for i, v := range vectors {
		s.training[i] = append([]float64(nil), v...)
	}
	return nil
}

func (s *SOM) SetInput(values []float64) error {
	return nn.SetActivations(s.inputs, values)
}

// Weights returns the incoming weight vector of unit i.
func (s *SOM) Weights(i int) []float64 {
	out := make([]float64, len(s.inputs))
	for j, in := range s.inputs {
		if syn, ok := in.OutgoingTo(s.units[i]); ok {
			out[j] = syn.Strength()
		}
	}
	return out
}

// winnerFor returns the unit whose weights are closest to input; the first
// index wins ties.
func (s *SOM) winnerFor(input []float64) int {
	best := 0
	bestDistance := math.Inf(1)
	for i := range s.units {
		d := floats.Distance(s.Weights(i), input, 2)
		if d < bestDistance {
			bestDistance = d
			best = i
		}
	}
	return best
}

// adjust moves every unit within the neighborhood of winner toward input.
func (s *SOM) adjust(winner int, input []float64) {
	center := s.units[winner]
	for _, unit := range s.units {
		if nn.Distance(unit, center) > s.neighborhoodSize {
			continue
		}
		for j, in := range s.inputs {
			syn, ok := in.OutgoingTo(unit)
			if !ok {
				continue
			}
			w := syn.Strength()
			syn.SetStrength(w + s.alpha*(input[j]-w))
		}
	}
}

func (s *SOM) decay() {
	s.alpha *= s.cfg.AlphaDecayRate
	s.neighborhoodSize = math.Max(0, s.neighborhoodSize-s.cfg.NeighborhoodDecayAmount)
}

// Iterate presents every training vector once, then decays the learning
// rate and neighborhood.
func (s *SOM) Iterate() error {
	if len(s.training) == 0 {
		return fmt.Errorf("%w: som has no training inputs", nn.ErrInvalidParameter)
	}
	for _, v := range s.training {
		s.winner = s.winnerFor(v)
		s.adjust(s.winner, v)
	}
	s.decay()
	s.epochs++
	return nil
}

// Train runs BatchSize iterations.
func (s *SOM) Train() error {
	for i := 0; i < s.cfg.BatchSize; i++ {
		if err := s.Iterate(); err != nil {
			return err
		}
	}
	return nil
}

// Update is one online tick on the current input activations: the winner is
// set to 1 and the rest to 0, the neighborhood learns, and every
// UpdateInterval ticks the parameters decay.
func (s *SOM) Update() {
	input := nn.Activations(s.inputs)
	s.winner = s.winnerFor(input)

	values := make([]float64, len(s.units))
	values[s.winner] = 1
	_ = nn.CommitActivations(s.units, values)

	s.adjust(s.winner, input)
	s.ticks++
	if s.ticks%s.cfg.UpdateInterval == 0 {
		s.decay()
	}
	s.net.Advance()
}

// Recall writes the weights of the most active unit back onto the inputs.
func (s *SOM) Recall() {
	best := 0
	for i, unit := range s.units {
		if unit.Activation() > s.units[best].Activation() {
			best = i
		}
	}
	s.winner = best
	_ = nn.SetActivations(s.inputs, s.Weights(best))
}
