package nn

import "fmt"

const DefaultSynapseBound = 10.0

// Synapse is a weighted directed link between two neurons of the same
// network. Strength always lies within [LowerBound, UpperBound].
type Synapse struct {
	id     int
	source *Neuron
	target *Neuron

	strength   float64
	upperBound float64
	lowerBound float64
	rule       SynapseRule

	// Frozen synapses ignore their learning rule.
	Frozen bool
}

func (s *Synapse) ID() int             { return s.id }
func (s *Synapse) Source() *Neuron     { return s.source }
func (s *Synapse) Target() *Neuron     { return s.target }
func (s *Synapse) Strength() float64   { return s.strength }
func (s *Synapse) UpperBound() float64 { return s.upperBound }
func (s *Synapse) LowerBound() float64 { return s.lowerBound }
func (s *Synapse) Rule() SynapseRule   { return s.rule }

func (s *Synapse) SetStrength(value float64) {
	s.strength = Sat(value, s.upperBound, s.lowerBound)
}

// SetBounds changes the bounds and re-clips the current strength.
func (s *Synapse) SetBounds(lower, upper float64) error {
	if lower > upper {
		return fmt.Errorf("%w: synapse %d lower bound %f above upper bound %f", ErrInvalidParameter, s.id, lower, upper)
	}
	s.lowerBound = lower
	s.upperBound = upper
	s.SetStrength(s.strength)
	return nil
}

func (s *Synapse) SetRule(rule SynapseRule) {
	if rule == nil {
		rule = StaticRule{}
	}
	s.rule = rule
}

func (s *Synapse) update() {
	if s.Frozen {
		return
	}
	if delta := s.rule.Delta(s); delta != 0 {
		s.SetStrength(s.strength + delta)
	}
}
