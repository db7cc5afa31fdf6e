package nn

import (
	"fmt"

	"simbrain/internal/randvar"
)

const (
	DefaultUpperBound = 1.0
	DefaultLowerBound = -1.0
	DefaultIncrement  = 0.1
)

// Neuron is a scalar unit owned by exactly one Network. Update reads the
// current activations of its sources and writes a buffered value that only
// becomes visible on commit.
type Neuron struct {
	id  int
	net *Network

	activation     float64
	lastActivation float64
	buffer         float64

	upperBound float64
	lowerBound float64
	increment  float64
	clamped    bool
	rule       UpdateRule

	Label    string
	AuxValue float64
	X        float64
	Y        float64

	fanIn  []*Synapse
	fanOut []*Synapse
}

func newNeuron(id int, net *Network, rule UpdateRule) *Neuron {
	if rule == nil {
		rule = DefaultLinearRule()
	}
	return &Neuron{
		id:         id,
		net:        net,
		upperBound: DefaultUpperBound,
		lowerBound: DefaultLowerBound,
		increment:  DefaultIncrement,
		rule:       rule,
	}
}

func (n *Neuron) ID() int                 { return n.id }
func (n *Neuron) Activation() float64     { return n.activation }
func (n *Neuron) LastActivation() float64 { return n.lastActivation }
func (n *Neuron) Buffer() float64         { return n.buffer }
func (n *Neuron) UpperBound() float64     { return n.upperBound }
func (n *Neuron) LowerBound() float64     { return n.lowerBound }
func (n *Neuron) Increment() float64      { return n.increment }
func (n *Neuron) Clamped() bool           { return n.clamped }
func (n *Neuron) Rule() UpdateRule        { return n.rule }

// SetActivation writes the activation directly, bypassing the update rule.
func (n *Neuron) SetActivation(value float64) {
	n.activation = value
	n.buffer = value
}

func (n *Neuron) SetClamped(clamped bool) {
	n.clamped = clamped
}

func (n *Neuron) SetIncrement(increment float64) {
	n.increment = increment
}

func (n *Neuron) SetRule(rule UpdateRule) {
	if rule == nil {
		rule = DefaultLinearRule()
	}
	n.rule = rule
}

func (n *Neuron) SetBounds(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("%w: neuron %d lower bound %f above upper bound %f", ErrInvalidParameter, n.id, lower, upper)
	}
	n.lowerBound = lower
	n.upperBound = upper
	return nil
}

// Clip limits value to the neuron's bounds.
func (n *Neuron) Clip(value float64) float64 {
	return Sat(value, n.upperBound, n.lowerBound)
}

// IncrementActivation steps the activation up by the increment, clipped.
func (n *Neuron) IncrementActivation() {
	n.SetActivation(n.Clip(n.activation + n.increment))
}

func (n *Neuron) DecrementActivation() {
	n.SetActivation(n.Clip(n.activation - n.increment))
}

// Randomize draws a new activation from v.
func (n *Neuron) Randomize(v *randvar.Variate) {
	n.SetActivation(v.Draw())
}

// WeightedInput sums strength times source activation over incoming synapses.
func (n *Neuron) WeightedInput() float64 {
	total := 0.0
	for _, s := range n.fanIn {
		total += s.strength * s.source.activation
	}
	return total
}

func (n *Neuron) FanIn() []*Synapse {
	return append([]*Synapse(nil), n.fanIn...)
}

func (n *Neuron) FanOut() []*Synapse {
	return append([]*Synapse(nil), n.fanOut...)
}

// OutgoingTo returns the synapse from n to target, if any.
func (n *Neuron) OutgoingTo(target *Neuron) (*Synapse, bool) {
	for _, s := range n.fanOut {
		if s.target == target {
			return s, true
		}
	}
	return nil, false
}

func (n *Neuron) computeBuffer() {
	if n.clamped {
		n.buffer = n.activation
		return
	}
	n.buffer = n.rule.Activation(n, n.WeightedInput())
}

func (n *Neuron) commit() {
	n.lastActivation = n.activation
	n.activation = n.buffer
}
