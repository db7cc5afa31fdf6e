package nn

// UpdateRule computes a neuron's next activation from its weighted input.
type UpdateRule interface {
	Name() string
	Activation(n *Neuron, input float64) float64
}

type LinearRule struct {
	Slope    float64
	Bias     float64
	Clipping bool
}

func DefaultLinearRule() *LinearRule {
	return &LinearRule{Slope: 1, Clipping: true}
}

func (*LinearRule) Name() string { return "linear" }

func (r *LinearRule) Activation(n *Neuron, input float64) float64 {
	value := r.Slope*input + r.Bias
	if r.Clipping {
		return n.Clip(value)
	}
	return value
}

// BinaryRule outputs the upper bound when input plus bias exceeds the
// threshold and the lower bound otherwise.
type BinaryRule struct {
	Threshold float64
	Bias      float64
}

func (*BinaryRule) Name() string { return "binary" }

func (r *BinaryRule) Activation(n *Neuron, input float64) float64 {
	if input+r.Bias > r.Threshold {
		return n.upperBound
	}
	return n.lowerBound
}

// SigmoidalRule squashes input plus bias into the neuron's bounds.
type SigmoidalRule struct {
	Kind  SquashKind
	Slope float64
	Bias  float64
}

func DefaultSigmoidalRule() *SigmoidalRule {
	return &SigmoidalRule{Kind: Logistic, Slope: 1}
}

func (r *SigmoidalRule) Name() string {
	if r.Kind == Logistic {
		return "sigmoidal"
	}
	return r.Kind.String()
}

func (r *SigmoidalRule) Activation(n *Neuron, input float64) float64 {
	return Squash(r.Kind, input+r.Bias, n.upperBound, n.lowerBound, r.Slope)
}

func (r *SigmoidalRule) Derivative(n *Neuron, input float64) float64 {
	return SquashDerivative(r.Kind, input+r.Bias, n.upperBound, n.lowerBound, r.Slope)
}

func (r *SigmoidalRule) Inverse(n *Neuron, value float64) float64 {
	return SquashInverse(r.Kind, value, n.upperBound, n.lowerBound, r.Slope) - r.Bias
}

// ClampedRule leaves the activation unchanged.
type ClampedRule struct{}

func (ClampedRule) Name() string { return "clamped" }

func (ClampedRule) Activation(n *Neuron, _ float64) float64 {
	return n.activation
}

// PointRule is a thresholded x/(x+1) rate code scaled into the neuron's
// bounds. Several neurons may share one rule so a single threshold can be
// moved for the whole group.
type PointRule struct {
	Gain      float64
	Threshold float64
}

func (*PointRule) Name() string { return "point" }

func (r *PointRule) Activation(n *Neuron, input float64) float64 {
	rate := XX1(r.Gain * (input - r.Threshold))
	return n.lowerBound + (n.upperBound-n.lowerBound)*rate
}

// SynapseRule computes a strength change applied after each tick.
type SynapseRule interface {
	Name() string
	Delta(s *Synapse) float64
}
