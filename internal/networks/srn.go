package networks

import (
	"fmt"
	"math/rand/v2"

	"simbrain/internal/nn"
	"simbrain/internal/randvar"
)

const contextResetValue = 0.5

type SRNConfig struct {
	Inputs  int
	Hidden  int
	Outputs int
	// WeightRange bounds the uniform draw for initial weights and biases.
	WeightRange float64
}

func DefaultSRNConfig(inputs, hidden, outputs int) SRNConfig {
	return SRNConfig{Inputs: inputs, Hidden: hidden, Outputs: outputs, WeightRange: 1}
}

// SimpleRecurrentNetwork is an Elman network: the hidden layer sees the
// current input and a copy of its own previous state.
type SimpleRecurrentNetwork struct {
	cfg     SRNConfig
	net     *nn.Network
	inputs  []*nn.Neuron
	hidden  []*nn.Neuron
	context []*nn.Neuron
	outputs []*nn.Neuron
}

func NewSimpleRecurrentNetwork(net *nn.Network, cfg SRNConfig, rng *rand.Rand) (*SimpleRecurrentNetwork, error) {
	if cfg.Inputs < 1 || cfg.Hidden < 1 || cfg.Outputs < 1 {
		return nil, fmt.Errorf("%w: srn layer sizes must be > 0", nn.ErrInvalidParameter)
	}
	if cfg.WeightRange <= 0 {
		return nil, fmt.Errorf("%w: srn weight range must be > 0", nn.ErrInvalidParameter)
	}
	if err := requireRNG(rng); err != nil {
		return nil, err
	}
	weights, err := randvar.New(randvar.Config{Kind: randvar.Uniform, Param1: -cfg.WeightRange, Param2: cfg.WeightRange}, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", nn.ErrInvalidParameter, err)
	}

	s := &SimpleRecurrentNetwork{cfg: cfg, net: orNewNetwork(net)}
	clamped := func() nn.UpdateRule { return nn.ClampedRule{} }
	logistic := func() nn.UpdateRule {
		return &nn.SigmoidalRule{Kind: nn.Logistic, Slope: 1, Bias: weights.Draw()}
	}

	s.inputs = s.net.AddNeurons(cfg.Inputs, clamped)
	s.context = s.net.AddNeurons(cfg.Hidden, clamped)
	for _, n := range append(s.Inputs(), s.context...) {
		n.SetClamped(true)
	}
	if s.hidden, err = addLayer(s.net, cfg.Hidden, logistic, 0, 1); err != nil {
		return nil, err
	}
	if s.outputs, err = addLayer(s.net, cfg.Outputs, logistic, 0, 1); err != nil {
		return nil, err
	}
	nn.LineLayout{Spacing: 50, OriginY: 200}.Apply(s.inputs)
	nn.LineLayout{Spacing: 50, OriginX: float64(cfg.Inputs+1) * 50, OriginY: 200}.Apply(s.context)
	nn.LineLayout{Spacing: 50, OriginY: 100}.Apply(s.hidden)
	nn.LineLayout{Spacing: 50}.Apply(s.outputs)

	full := nn.AllToAll{Weights: weights}
	for _, layer := range [][2][]*nn.Neuron{
		{s.inputs, s.hidden},
		{s.context, s.hidden},
		{s.hidden, s.outputs},
	} {
		if _, err := nn.ConnectAllToAll(s.net, layer[0], layer[1], full); err != nil {
			return nil, err
		}
	}
	s.Reset()
	return s, nil
}

func (s *SimpleRecurrentNetwork) Network() *nn.Network { return s.net }
func (s *SimpleRecurrentNetwork) Config() SRNConfig    { return s.cfg }
func (s *SimpleRecurrentNetwork) Inputs() []*nn.Neuron { return append([]*nn.Neuron(nil), s.inputs...) }
func (s *SimpleRecurrentNetwork) Hidden() []*nn.Neuron { return append([]*nn.Neuron(nil), s.hidden...) }
func (s *SimpleRecurrentNetwork) Context() []*nn.Neuron {
	return append([]*nn.Neuron(nil), s.context...)
}

func (s *SimpleRecurrentNetwork) SetInputs(values []float64) error {
	return nn.SetActivations(s.inputs, values)
}

func (s *SimpleRecurrentNetwork) Outputs() []float64 {
	return nn.Activations(s.outputs)
}

// Reset restores every context unit to 0.5.
func (s *SimpleRecurrentNetwork) Reset() {
	for _, n := range s.context {
		n.SetActivation(contextResetValue)
	}
}

// Update runs hidden then output, then copies hidden into context.
func (s *SimpleRecurrentNetwork) Update() {
	s.forward()
	s.net.Advance()
}

// forward runs one pass and returns the net inputs of hidden and output
// units.
func (s *SimpleRecurrentNetwork) forward() (hiddenNet, outputNet []float64) {
	hiddenNet = weightedInputs(s.hidden)
	s.net.UpdateGroup(s.hidden)
	outputNet = weightedInputs(s.outputs)
	s.net.UpdateGroup(s.outputs)
	_ = nn.CommitActivations(s.context, nn.Activations(s.hidden))
	return hiddenNet, outputNet
}

// Train runs backpropagation for epochs passes over the sequence, treating
// the context layer as extra input at each step. The context is reset at
// the start of every epoch. It returns the mean squared error of the last
// epoch.
func (s *SimpleRecurrentNetwork) Train(inputs, targets [][]float64, epochs int, learningRate float64) (float64, error) {
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return 0, fmt.Errorf("%w: srn training needs matching non-empty inputs and targets: got=%d,%d", nn.ErrInvalidParameter, len(inputs), len(targets))
	}
	if epochs < 1 || learningRate <= 0 {
		return 0, fmt.Errorf("%w: srn training needs epochs > 0 and learning rate > 0", nn.ErrInvalidParameter)
	}
	for i := range inputs {
		if len(inputs[i]) != len(s.inputs) || len(targets[i]) != len(s.outputs) {
			return 0, fmt.Errorf("%w: srn training row %d has wrong width", nn.ErrInvalidParameter, i)
		}
	}

	mse := 0.0
	for epoch := 0; epoch < epochs; epoch++ {
		s.Reset()
		total := 0.0
		for t := range inputs {
			_ = s.SetInputs(inputs[t])
			total += s.backprop(targets[t], learningRate)
			s.net.Advance()
		}
		mse = total / float64(len(inputs)*len(s.outputs))
	}
	return mse, nil
}

// backprop runs one forward pass, adjusts weights and biases toward target
// and returns the summed squared error of the pass.
func (s *SimpleRecurrentNetwork) backprop(target []float64, rate float64) float64 {
	// Context feeding the hidden layer this step, before forward overwrites it.
	prevContext := nn.Activations(s.context)
	hiddenNet, outputNet := s.forward()

	sse := 0.0
	outDelta := make([]float64, len(s.outputs))
	for k, n := range s.outputs {
		err := target[k] - n.Activation()
		sse += err * err
		outDelta[k] = err * n.Rule().(*nn.SigmoidalRule).Derivative(n, outputNet[k])
	}

	hiddenDelta := make([]float64, len(s.hidden))
	for j, h := range s.hidden {
		back := 0.0
		for k, out := range s.outputs {
			if syn, ok := h.OutgoingTo(out); ok {
				back += syn.Strength() * outDelta[k]
			}
		}
		hiddenDelta[j] = back * h.Rule().(*nn.SigmoidalRule).Derivative(h, hiddenNet[j])
	}

	for k, out := range s.outputs {
		for _, syn := range out.FanIn() {
			syn.SetStrength(syn.Strength() + rate*outDelta[k]*syn.Source().Activation())
		}
		out.Rule().(*nn.SigmoidalRule).Bias += rate * outDelta[k]
	}

	contextIndex := make(map[*nn.Neuron]int, len(s.context))
	for i, n := range s.context {
		contextIndex[n] = i
	}
	for j, h := range s.hidden {
		for _, syn := range h.FanIn() {
			pre := syn.Source().Activation()
			if i, ok := contextIndex[syn.Source()]; ok {
				pre = prevContext[i]
			}
			syn.SetStrength(syn.Strength() + rate*hiddenDelta[j]*pre)
		}
		h.Rule().(*nn.SigmoidalRule).Bias += rate * hiddenDelta[j]
	}
	return sse
}
