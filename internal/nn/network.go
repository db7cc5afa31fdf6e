package nn

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Tick is published to subscribers after every network update.
type Tick struct {
	Time int
}

// Network owns an ordered collection of neurons and the synapses between
// them. Updates run on the caller's goroutine; only subscription management
// is synchronized.
type Network struct {
	neurons  []*Neuron
	synapses []*Synapse
	byID     map[int]*Neuron

	nextNeuronID  int
	nextSynapseID int
	time          int

	mu         sync.Mutex
	listeners  map[int]func(Tick)
	nextListen int
}

func NewNetwork() *Network {
	return &Network{
		byID:      make(map[int]*Neuron),
		listeners: make(map[int]func(Tick)),
	}
}

// AddNeuron appends a neuron; a nil rule means the default linear rule.
func (net *Network) AddNeuron(rule UpdateRule) *Neuron {
	n := newNeuron(net.nextNeuronID, net, rule)
	net.nextNeuronID++
	net.neurons = append(net.neurons, n)
	net.byID[n.id] = n
	return n
}

// AddNeurons appends count neurons built by factory, or with the default
// rule when factory is nil.
func (net *Network) AddNeurons(count int, factory RuleFactory) []*Neuron {
	out := make([]*Neuron, 0, count)
	for i := 0; i < count; i++ {
		var rule UpdateRule
		if factory != nil {
			rule = factory()
		}
		out = append(out, net.AddNeuron(rule))
	}
	return out
}

func (net *Network) Neuron(id int) (*Neuron, bool) {
	n, ok := net.byID[id]
	return n, ok
}

func (net *Network) Neurons() []*Neuron {
	return append([]*Neuron(nil), net.neurons...)
}

func (net *Network) Synapses() []*Synapse {
	return append([]*Synapse(nil), net.synapses...)
}

func (net *Network) NeuronCount() int  { return len(net.neurons) }
func (net *Network) SynapseCount() int { return len(net.synapses) }
func (net *Network) Time() int         { return net.time }

func (net *Network) owns(n *Neuron) bool {
	return n != nil && n.net == net
}

// AddSynapse connects source to target with default bounds. Both neurons
// must belong to this network.
func (net *Network) AddSynapse(source, target *Neuron, strength float64) (*Synapse, error) {
	if !net.owns(source) || !net.owns(target) {
		return nil, fmt.Errorf("%w: synapse endpoints must belong to the network", ErrInvalidParameter)
	}
	s := &Synapse{
		id:         net.nextSynapseID,
		source:     source,
		target:     target,
		upperBound: DefaultSynapseBound,
		lowerBound: -DefaultSynapseBound,
		rule:       StaticRule{},
	}
	s.SetStrength(strength)
	net.nextSynapseID++
	net.synapses = append(net.synapses, s)
	source.fanOut = append(source.fanOut, s)
	target.fanIn = append(target.fanIn, s)
	return s, nil
}

func (net *Network) RemoveSynapse(s *Synapse) {
	if s == nil {
		return
	}
	net.synapses = removeSynapse(net.synapses, s)
	s.source.fanOut = removeSynapse(s.source.fanOut, s)
	s.target.fanIn = removeSynapse(s.target.fanIn, s)
}

// RemoveNeuron deletes n together with every synapse touching it.
func (net *Network) RemoveNeuron(n *Neuron) {
	if !net.owns(n) {
		return
	}
	for _, s := range append(n.FanIn(), n.fanOut...) {
		net.RemoveSynapse(s)
	}
	for i, candidate := range net.neurons {
		if candidate == n {
			net.neurons = append(net.neurons[:i], net.neurons[i+1:]...)
			break
		}
	}
	delete(net.byID, n.id)
	n.net = nil
}

func removeSynapse(list []*Synapse, s *Synapse) []*Synapse {
	for i, candidate := range list {
		if candidate == s {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Update runs one synchronous tick: every buffer is computed from the
// activations of the previous tick before any is committed.
func (net *Network) Update() {
	net.UpdateGroup(net.neurons)
	net.UpdateSynapses()
	net.advance()
}

// UpdateGroup synchronously updates only the given neurons without
// advancing time.
func (net *Network) UpdateGroup(group []*Neuron) {
	for _, n := range group {
		n.computeBuffer()
	}
	for _, n := range group {
		n.commit()
	}
}

// UpdateAsync updates neurons one at a time in the given order, each seeing
// the activations already written earlier in the same pass.
func (net *Network) UpdateAsync(order []*Neuron) {
	for _, n := range order {
		n.computeBuffer()
		n.commit()
	}
	net.UpdateSynapses()
	net.advance()
}

func (net *Network) UpdateSynapses() {
	for _, s := range net.synapses {
		s.update()
	}
}

// Advance increments the clock and notifies subscribers. Engines that drive
// neuron updates themselves call it once per tick.
func (net *Network) Advance() {
	net.advance()
}

func (net *Network) advance() {
	net.time++
	net.mu.Lock()
	listeners := make([]func(Tick), 0, len(net.listeners))
	for _, fn := range net.listeners {
		listeners = append(listeners, fn)
	}
	net.mu.Unlock()

	tick := Tick{Time: net.time}
	for _, fn := range listeners {
		fn(tick)
	}
}

// Subscribe registers fn to run after each tick and returns a function that
// removes it.
func (net *Network) Subscribe(fn func(Tick)) func() {
	net.mu.Lock()
	id := net.nextListen
	net.nextListen++
	net.listeners[id] = fn
	net.mu.Unlock()

	return func() {
		net.mu.Lock()
		delete(net.listeners, id)
		net.mu.Unlock()
	}
}

// ClearActivations zeroes every unclamped neuron.
func (net *Network) ClearActivations() {
	for _, n := range net.neurons {
		if !n.clamped {
			n.SetActivation(0)
		}
	}
}

func Activations(group []*Neuron) []float64 {
	out := make([]float64, len(group))
	for i, n := range group {
		out[i] = n.activation
	}
	return out
}

func SetActivations(group []*Neuron, values []float64) error {
	if len(values) != len(group) {
		return fmt.Errorf("%w: activation count mismatch: got=%d want=%d", ErrInvalidParameter, len(values), len(group))
	}
	for i, n := range group {
		n.SetActivation(values[i])
	}
	return nil
}

// CommitActivations writes values as the new activations of group, keeping
// the current ones as last activations. Engines that compute a whole layer
// themselves use it as their commit step.
func CommitActivations(group []*Neuron, values []float64) error {
	if len(values) != len(group) {
		return fmt.Errorf("%w: activation count mismatch: got=%d want=%d", ErrInvalidParameter, len(values), len(group))
	}
	for i, n := range group {
		n.buffer = values[i]
		n.commit()
	}
	return nil
}

// WeightMatrix returns w where w[i][j] is the strength from src[i] to
// tar[j], zero when unconnected.
func WeightMatrix(src, tar []*Neuron) *mat.Dense {
	if len(src) == 0 || len(tar) == 0 {
		return &mat.Dense{}
	}
	col := make(map[*Neuron]int, len(tar))
	for j, n := range tar {
		col[n] = j
	}
	w := mat.NewDense(len(src), len(tar), nil)
	for i, n := range src {
		for _, s := range n.fanOut {
			if j, ok := col[s.target]; ok {
				w.Set(i, j, s.strength)
			}
		}
	}
	return w
}

// SetWeightMatrix writes w into the synapses from src to tar, creating
// synapses for non-zero entries that are not yet connected.
func (net *Network) SetWeightMatrix(src, tar []*Neuron, w mat.Matrix) error {
	rows, cols := w.Dims()
	if rows != len(src) || cols != len(tar) {
		return fmt.Errorf("%w: weight matrix %dx%d does not match %dx%d", ErrInvalidParameter, rows, cols, len(src), len(tar))
	}
	for i, source := range src {
		for j, target := range tar {
			value := w.At(i, j)
			if s, ok := source.OutgoingTo(target); ok {
				s.SetStrength(value)
				continue
			}
			if value == 0 {
				continue
			}
			if _, err := net.AddSynapse(source, target, value); err != nil {
				return err
			}
		}
	}
	return nil
}
