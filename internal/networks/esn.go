package networks

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"simbrain/internal/nn"
	"simbrain/internal/randvar"
)

const (
	readoutBound        = 1e6
	esnExcitatoryRatio  = 0.5
	initialTeacherValue = 0.5
	rankTolerance       = 1e-12
)

type ESNConfig struct {
	Inputs    int
	Reservoir int
	Outputs   int

	InToResSparsity float64
	ResSparsity     float64
	BackSparsity    float64
	// BackWeights feeds the outputs back into the reservoir; training then
	// forces the outputs to the previous target.
	BackWeights    bool
	SpectralRadius float64

	// ReservoirRule and OutputRule build one rule per neuron; nil means a
	// tanh sigmoidal reservoir and unclipped linear outputs.
	ReservoirRule nn.RuleFactory
	OutputRule    nn.RuleFactory

	// Noise, when set, is added to reservoir states while harvesting.
	Noise *randvar.Config
	// Ridge > 0 switches the readout solve to ridge regression.
	Ridge float64
}

func DefaultESNConfig(inputs, reservoir, outputs int) ESNConfig {
	return ESNConfig{
		Inputs:          inputs,
		Reservoir:       reservoir,
		Outputs:         outputs,
		InToResSparsity: 0.2,
		ResSparsity:     0.05,
		BackSparsity:    0.2,
		SpectralRadius:  0.98,
	}
}

// EchoStateNetwork is a fixed random reservoir with a trained linear
// readout. Only the input->output and reservoir->output weights change
// during training.
type EchoStateNetwork struct {
	cfg       ESNConfig
	net       *nn.Network
	inputs    []*nn.Neuron
	reservoir []*nn.Neuron
	outputs   []*nn.Neuron
	noise     *randvar.Variate
}

func NewEchoStateNetwork(net *nn.Network, cfg ESNConfig, rng *rand.Rand) (*EchoStateNetwork, error) {
	if cfg.Inputs < 1 || cfg.Reservoir < 1 || cfg.Outputs < 1 {
		return nil, fmt.Errorf("%w: esn layer sizes must be > 0", nn.ErrInvalidParameter)
	}
	if cfg.SpectralRadius < 0 {
		return nil, fmt.Errorf("%w: spectral radius must be >= 0", nn.ErrInvalidParameter)
	}
	if cfg.Ridge < 0 {
		return nil, fmt.Errorf("%w: ridge must be >= 0", nn.ErrInvalidParameter)
	}
	if err := requireRNG(rng); err != nil {
		return nil, err
	}

	e := &EchoStateNetwork{cfg: cfg, net: orNewNetwork(net)}
	if cfg.Noise != nil {
		noise, err := randvar.New(*cfg.Noise, rng)
		if err != nil {
			return nil, fmt.Errorf("%w: esn noise: %v", nn.ErrInvalidParameter, err)
		}
		e.noise = noise
	}

	reservoirRule := cfg.ReservoirRule
	if reservoirRule == nil {
		reservoirRule = func() nn.UpdateRule { return &nn.SigmoidalRule{Kind: nn.Tanh, Slope: 1} }
	}
	outputRule := cfg.OutputRule
	if outputRule == nil {
		outputRule = func() nn.UpdateRule { return &nn.LinearRule{Slope: 1} }
	}

	e.inputs = e.net.AddNeurons(cfg.Inputs, func() nn.UpdateRule { return nn.ClampedRule{} })
	for _, n := range e.inputs {
		n.SetClamped(true)
	}
	e.reservoir = e.net.AddNeurons(cfg.Reservoir, reservoirRule)
	e.outputs = e.net.AddNeurons(cfg.Outputs, outputRule)
	nn.LineLayout{Spacing: 50, OriginY: 200}.Apply(e.inputs)
	nn.GridLayout{HSpacing: 40, VSpacing: 40}.Apply(e.reservoir)
	nn.LineLayout{Spacing: 50, OriginY: -200}.Apply(e.outputs)

	sparse := func(src, tar []*nn.Neuron, density float64, allowSelf bool) error {
		_, err := nn.ConnectSparse(e.net, src, tar, nn.Sparse{
			Density:         density,
			ExcitatoryRatio: esnExcitatoryRatio,
			AllowSelf:       allowSelf,
		}, rng)
		return err
	}
	if err := sparse(e.inputs, e.reservoir, cfg.InToResSparsity, false); err != nil {
		return nil, err
	}
	if err := sparse(e.reservoir, e.reservoir, cfg.ResSparsity, true); err != nil {
		return nil, err
	}
	if cfg.BackWeights {
		if err := sparse(e.outputs, e.reservoir, cfg.BackSparsity, false); err != nil {
			return nil, err
		}
	}
	for _, src := range [][]*nn.Neuron{e.inputs, e.reservoir} {
		readout, err := nn.ConnectAllToAll(e.net, src, e.outputs, nn.AllToAll{})
		if err != nil {
			return nil, err
		}
		for _, s := range readout {
			if err := s.SetBounds(-readoutBound, readoutBound); err != nil {
				return nil, err
			}
		}
	}

	if _, err := nn.ScaleSpectralRadius(e.reservoir, cfg.SpectralRadius); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EchoStateNetwork) Network() *nn.Network    { return e.net }
func (e *EchoStateNetwork) Config() ESNConfig       { return e.cfg }
func (e *EchoStateNetwork) Inputs() []*nn.Neuron    { return append([]*nn.Neuron(nil), e.inputs...) }
func (e *EchoStateNetwork) Reservoir() []*nn.Neuron { return append([]*nn.Neuron(nil), e.reservoir...) }
func (e *EchoStateNetwork) OutputNeurons() []*nn.Neuron {
	return append([]*nn.Neuron(nil), e.outputs...)
}

// ReservoirWeights returns the recurrent reservoir matrix.
func (e *EchoStateNetwork) ReservoirWeights() *mat.Dense {
	return nn.WeightMatrix(e.reservoir, e.reservoir)
}

func (e *EchoStateNetwork) SetInputs(values []float64) error {
	return nn.SetActivations(e.inputs, values)
}

func (e *EchoStateNetwork) Outputs() []float64 {
	return nn.Activations(e.outputs)
}

// Reset zeroes the reservoir and output states.
func (e *EchoStateNetwork) Reset() {
	for _, n := range append(e.Reservoir(), e.outputs...) {
		n.SetActivation(0)
	}
}

// Update advances the reservoir and then the outputs by one tick.
func (e *EchoStateNetwork) Update() {
	e.net.UpdateGroup(e.reservoir)
	e.net.UpdateGroup(e.outputs)
	e.net.Advance()
}

func (e *EchoStateNetwork) stepReservoir(input, teacher []float64, noisy bool) {
	_ = nn.SetActivations(e.inputs, input)
	if e.cfg.BackWeights {
		_ = nn.SetActivations(e.outputs, teacher)
	}
	e.net.UpdateGroup(e.reservoir)
	if noisy && e.noise != nil {
		for _, n := range e.reservoir {
			n.SetActivation(n.Activation() + e.noise.Draw())
		}
	}
}

// Train fits the readout to targets by least squares over the reservoir
// states driven by inputs. The sequence is run once to settle the
// reservoir and again to harvest states. It returns the mean squared
// readout error on the harvested states.
func (e *EchoStateNetwork) Train(inputs, targets [][]float64) (float64, error) {
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return 0, fmt.Errorf("%w: esn training needs matching non-empty inputs and targets: got=%d,%d", nn.ErrInvalidParameter, len(inputs), len(targets))
	}
	for i := range inputs {
		if len(inputs[i]) != len(e.inputs) || len(targets[i]) != len(e.outputs) {
			return 0, fmt.Errorf("%w: esn training row %d has wrong width", nn.ErrInvalidParameter, i)
		}
	}

	teacher := make([]float64, len(e.outputs))
	for i := range teacher {
		teacher[i] = initialTeacherValue
	}
	for i := range inputs {
		e.stepReservoir(inputs[i], teacher, false)
		teacher = targets[i]
	}

	cols := len(e.inputs) + len(e.reservoir)
	x := mat.NewDense(len(inputs), cols, nil)
	y := mat.NewDense(len(targets), len(e.outputs), nil)
	for t := range inputs {
		e.stepReservoir(inputs[t], teacher, true)
		row := append(nn.Activations(e.inputs), nn.Activations(e.reservoir)...)
		x.SetRow(t, row)
		for k, n := range e.outputs {
			y.Set(t, k, e.readoutTarget(n, targets[t][k]))
		}
		teacher = targets[t]
	}

	w, err := solveReadout(x, y, e.cfg.Ridge)
	if err != nil {
		return 0, err
	}
	if err := e.net.SetWeightMatrix(append(e.Inputs(), e.reservoir...), e.outputs, w); err != nil {
		return 0, err
	}
	return meanSquaredResidual(x, w, y), nil
}

// readoutTarget maps a target activation back to the net input a sigmoidal
// output needs to produce it.
func (e *EchoStateNetwork) readoutTarget(n *nn.Neuron, target float64) float64 {
	if rule, ok := n.Rule().(*nn.SigmoidalRule); ok {
		return rule.Inverse(n, target)
	}
	return target
}

// solveReadout returns the minimum-norm least-squares solution of x*w = y,
// or solves the ridge normal equations when ridge > 0.
func solveReadout(x, y *mat.Dense, ridge float64) (*mat.Dense, error) {
	var w mat.Dense
	if ridge > 0 {
		_, cols := x.Dims()
		var xtx, xty mat.Dense
		xtx.Mul(x.T(), x)
		for i := 0; i < cols; i++ {
			xtx.Set(i, i, xtx.At(i, i)+ridge)
		}
		xty.Mul(x.T(), y)
		err := w.Solve(&xtx, &xty)
		var cond mat.Condition
		if err != nil && !errors.As(err, &cond) {
			return nil, fmt.Errorf("solve ridge readout: %w", err)
		}
		return &w, nil
	}

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, errors.New("solve readout: svd did not converge")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		_, cols := x.Dims()
		_, outs := y.Dims()
		return mat.NewDense(cols, outs, nil), nil
	}
	svd.SolveTo(&w, y, rank)
	return &w, nil
}

func meanSquaredResidual(x, w, y *mat.Dense) float64 {
	var pred mat.Dense
	pred.Mul(x, w)
	rows, cols := y.Dims()
	total := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := pred.At(i, j) - y.At(i, j)
			total += d * d
		}
	}
	return total / float64(rows*cols)
}
