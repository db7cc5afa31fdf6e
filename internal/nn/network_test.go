package nn

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"simbrain/internal/randvar"
)

func TestSynchronousUpdateReadsPreviousTick(t *testing.T) {
	net := NewNetwork()
	a := net.AddNeuron(nil)
	b := net.AddNeuron(nil)
	if _, err := net.AddSynapse(a, b, 1); err != nil {
		t.Fatalf("add a->b: %v", err)
	}
	if _, err := net.AddSynapse(b, a, 1); err != nil {
		t.Fatalf("add b->a: %v", err)
	}
	a.SetActivation(1)
	b.SetActivation(0)

	net.Update()
	if a.Activation() != 0 || b.Activation() != 1 {
		t.Fatalf("synchronous swap failed: a=%f b=%f", a.Activation(), b.Activation())
	}
	if a.LastActivation() != 1 {
		t.Fatalf("last activation not kept: got=%f want=1", a.LastActivation())
	}
	if net.Time() != 1 {
		t.Fatalf("unexpected time: got=%d want=1", net.Time())
	}
}

func TestAsynchronousUpdateSeesEarlierWrites(t *testing.T) {
	net := NewNetwork()
	a := net.AddNeuron(nil)
	b := net.AddNeuron(nil)
	if _, err := net.AddSynapse(a, b, 1); err != nil {
		t.Fatalf("add a->b: %v", err)
	}
	if _, err := net.AddSynapse(b, a, 1); err != nil {
		t.Fatalf("add b->a: %v", err)
	}
	a.SetActivation(1)
	b.SetActivation(0)

	net.UpdateAsync([]*Neuron{a, b})
	if a.Activation() != 0 || b.Activation() != 0 {
		t.Fatalf("asynchronous order not honored: a=%f b=%f", a.Activation(), b.Activation())
	}
}

func TestClampedNeuronKeepsActivation(t *testing.T) {
	net := NewNetwork()
	in := net.AddNeuron(nil)
	out := net.AddNeuron(nil)
	if _, err := net.AddSynapse(out, in, 5); err != nil {
		t.Fatalf("add synapse: %v", err)
	}
	in.SetClamped(true)
	in.SetActivation(0.3)
	out.SetActivation(1)
	net.Update()
	if in.Activation() != 0.3 {
		t.Fatalf("clamped neuron changed: got=%f want=0.3", in.Activation())
	}
}

func TestSynapseStrengthClamped(t *testing.T) {
	net := NewNetwork()
	a := net.AddNeuron(nil)
	b := net.AddNeuron(nil)
	s, err := net.AddSynapse(a, b, 50)
	if err != nil {
		t.Fatalf("add synapse: %v", err)
	}
	if s.Strength() != DefaultSynapseBound {
		t.Fatalf("strength not clamped on create: got=%f", s.Strength())
	}
	if err := s.SetBounds(-1, 1); err != nil {
		t.Fatalf("set bounds: %v", err)
	}
	if s.Strength() != 1 {
		t.Fatalf("strength not re-clamped: got=%f want=1", s.Strength())
	}
	if err := s.SetBounds(1, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRemoveNeuronCascadesSynapses(t *testing.T) {
	net := NewNetwork()
	a := net.AddNeuron(nil)
	b := net.AddNeuron(nil)
	c := net.AddNeuron(nil)
	for _, pair := range [][2]*Neuron{{a, b}, {b, c}, {c, b}, {a, c}, {b, b}} {
		if _, err := net.AddSynapse(pair[0], pair[1], 1); err != nil {
			t.Fatalf("add synapse: %v", err)
		}
	}

	net.RemoveNeuron(b)
	if net.NeuronCount() != 2 {
		t.Fatalf("unexpected neuron count: got=%d want=2", net.NeuronCount())
	}
	if net.SynapseCount() != 1 {
		t.Fatalf("unexpected synapse count: got=%d want=1", net.SynapseCount())
	}
	if len(a.FanOut()) != 1 || len(c.FanIn()) != 1 || len(c.FanOut()) != 0 {
		t.Fatalf("dangling synapse references: a.out=%d c.in=%d c.out=%d", len(a.FanOut()), len(c.FanIn()), len(c.FanOut()))
	}
	if _, ok := net.Neuron(b.ID()); ok {
		t.Fatal("removed neuron still resolvable by id")
	}
	if _, err := net.AddSynapse(a, b, 1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter connecting removed neuron, got %v", err)
	}
}

func TestAddSynapseRejectsForeignNeuron(t *testing.T) {
	net := NewNetwork()
	other := NewNetwork()
	a := net.AddNeuron(nil)
	b := other.AddNeuron(nil)
	if _, err := net.AddSynapse(a, b, 1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSubscribeReceivesTicks(t *testing.T) {
	net := NewNetwork()
	net.AddNeuron(nil)
	var seen []int
	unsubscribe := net.Subscribe(func(tick Tick) {
		seen = append(seen, tick.Time)
	})
	net.Update()
	net.Update()
	unsubscribe()
	net.Update()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected ticks: %+v", seen)
	}
}

func TestWeightMatrixRoundTrip(t *testing.T) {
	net := NewNetwork()
	src := net.AddNeurons(2, nil)
	tar := net.AddNeurons(3, nil)
	w := mat.NewDense(2, 3, []float64{
		0.1, 0, -0.3,
		0.4, 0.5, 0,
	})
	if err := net.SetWeightMatrix(src, tar, w); err != nil {
		t.Fatalf("set weights: %v", err)
	}
	if net.SynapseCount() != 4 {
		t.Fatalf("unexpected synapse count: got=%d want=4", net.SynapseCount())
	}
	got := WeightMatrix(src, tar)
	if !mat.Equal(got, w) {
		t.Fatalf("weight matrix mismatch:\n got=%v\nwant=%v", mat.Formatted(got), mat.Formatted(w))
	}
	if err := net.SetWeightMatrix(src, src, w); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSetActivationsLengthMismatch(t *testing.T) {
	net := NewNetwork()
	group := net.AddNeurons(3, nil)
	if err := SetActivations(group, []float64{1, 2}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if err := SetActivations(group, []float64{1, 2, 3}); err != nil {
		t.Fatalf("set activations: %v", err)
	}
	got := Activations(group)
	if got[2] != 3 {
		t.Fatalf("unexpected activation: got=%f want=3", got[2])
	}
}

func TestConnectAllToAllSkipsSelf(t *testing.T) {
	net := NewNetwork()
	group := net.AddNeurons(4, nil)
	synapses, err := ConnectAllToAll(net, group, group, AllToAll{Strength: 0.5})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(synapses) != 12 {
		t.Fatalf("unexpected synapse count: got=%d want=12", len(synapses))
	}
	for _, s := range synapses {
		if s.Source() == s.Target() {
			t.Fatal("self connection created")
		}
	}
}

func TestConnectSparseDensityAndPolarity(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	net := NewNetwork()
	src := net.AddNeurons(40, nil)
	tar := net.AddNeurons(40, nil)
	synapses, err := ConnectSparse(net, src, tar, Sparse{Density: 0.25, ExcitatoryRatio: 1}, rng)
	if err != nil {
		t.Fatalf("connect sparse: %v", err)
	}
	density := float64(len(synapses)) / 1600
	if math.Abs(density-0.25) > 0.05 {
		t.Fatalf("unexpected density: got=%f want~0.25", density)
	}
	for _, s := range synapses {
		if s.Strength() < 0 {
			t.Fatalf("excitatory-only connection negative: %f", s.Strength())
		}
	}
}

func TestConnectSparseRejectsOutOfRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	net := NewNetwork()
	group := net.AddNeurons(3, nil)
	for _, cfg := range []Sparse{
		{Density: -0.1, ExcitatoryRatio: 0.5},
		{Density: 1.1, ExcitatoryRatio: 0.5},
		{Density: 0.5, ExcitatoryRatio: 2},
	} {
		if _, err := ConnectSparse(net, group, group, cfg, rng); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("expected ErrInvalidParameter for %+v, got %v", cfg, err)
		}
	}
	if net.SynapseCount() != 0 {
		t.Fatalf("rejected config still created synapses: %d", net.SynapseCount())
	}
}

func TestSpectralRadius(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 2, -2, 0})
	got, err := SpectralRadius(m)
	if err != nil {
		t.Fatalf("spectral radius: %v", err)
	}
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("unexpected radius: got=%f want=2", got)
	}
	if _, err := SpectralRadius(mat.NewDense(2, 3, nil)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestPowerIterationAgreesWithEigen(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		2, 1, 0,
		1, 3, 1,
		0, 1, 4,
	})
	want, err := SpectralRadius(m)
	if err != nil {
		t.Fatalf("spectral radius: %v", err)
	}
	if got := powerIteration(m, 3); math.Abs(got-want) > 1e-6 {
		t.Fatalf("power iteration mismatch: got=%f want=%f", got, want)
	}
}

func TestScaleSpectralRadius(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	net := NewNetwork()
	group := net.AddNeurons(30, nil)
	weights := randvar.MustNew(randvar.Config{Kind: randvar.Uniform, Param1: -1, Param2: 1}, rng)
	if _, err := ConnectAllToAll(net, group, group, AllToAll{Weights: weights}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := ScaleSpectralRadius(group, 0.9); err != nil {
		t.Fatalf("scale: %v", err)
	}
	got, err := SpectralRadius(WeightMatrix(group, group))
	if err != nil {
		t.Fatalf("spectral radius: %v", err)
	}
	if math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("unexpected radius after scaling: got=%f want=0.9", got)
	}

	empty := NewNetwork().AddNeurons(3, nil)
	before, err := ScaleSpectralRadius(empty, 0.9)
	if err != nil || before != 0 {
		t.Fatalf("expected no-op on unconnected group: before=%f err=%v", before, err)
	}
}

func TestLayouts(t *testing.T) {
	net := NewNetwork()
	group := net.AddNeurons(5, nil)
	GridLayout{Columns: 2, HSpacing: 10, VSpacing: 20}.Apply(group)
	if group[3].X != 10 || group[3].Y != 20 {
		t.Fatalf("unexpected grid position: x=%f y=%f", group[3].X, group[3].Y)
	}
	LineLayout{Spacing: 3}.Apply(group)
	if got := Distance(group[0], group[4]); got != 12 {
		t.Fatalf("unexpected line distance: got=%f want=12", got)
	}
}
