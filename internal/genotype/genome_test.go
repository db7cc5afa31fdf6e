package genotype

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"simbrain/internal/nn"
)

func newTestGenome(t *testing.T, inputs, outputs int, seed uint64) *Genome {
	t.Helper()
	g, err := New(inputs, outputs, seed, DefaultMutationParams(), nil)
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	return g
}

func TestNewGenomeShape(t *testing.T) {
	g := newTestGenome(t, 3, 2, 1)
	nodes := g.NodeGenes()
	if len(nodes) != 5 {
		t.Fatalf("unexpected node count: got=%d want=5", len(nodes))
	}
	for i, n := range nodes {
		want := Input
		if i >= 3 {
			want = Output
		}
		if n.ID != i || n.Type != want || n.Rule != DefaultIORule {
			t.Fatalf("unexpected node %d: %+v", i, n)
		}
	}
	conns := g.ConnectionGenes()
	if len(conns) != 1 || !conns[0].Enabled {
		t.Fatalf("expected one enabled initial connection, got %+v", conns)
	}
	if conns[0].InNode >= 3 || conns[0].OutNode < 3 {
		t.Fatalf("initial connection must run input->output: %+v", conns[0])
	}
	if !math.IsNaN(g.Fitness()) || g.Evaluated() {
		t.Fatalf("new genome should be unevaluated: fitness=%f", g.Fitness())
	}
}

func TestNewGenomeValidation(t *testing.T) {
	if _, err := New(0, 1, 1, DefaultMutationParams(), nil); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for zero inputs, got %v", err)
	}
	params := DefaultMutationParams()
	params.StrengthFloor = 5
	params.StrengthCeiling = 5
	if _, err := New(1, 1, 1, params, nil); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for empty strength range, got %v", err)
	}
	if _, err := New(1, 1, 1, nil, nil); !errors.Is(err, nn.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter for nil params, got %v", err)
	}
}

func TestCopyIsDeepAndResetsFitness(t *testing.T) {
	g := newTestGenome(t, 2, 1, 5)
	g.SetID(9)
	g.SetFitness(3)
	child := g.Copy()

	if child.ID() != 9 {
		t.Fatalf("copy changed id: %d", child.ID())
	}
	if !reflect.DeepEqual(child.ConnectionGenes(), g.ConnectionGenes()) || !reflect.DeepEqual(child.NodeGenes(), g.NodeGenes()) {
		t.Fatal("copy genes differ from parent")
	}
	if child.Evaluated() {
		t.Fatalf("copy kept fitness %f", child.Fitness())
	}
	if child.Params() != g.Params() || child.Table() != g.Table() {
		t.Fatal("copy must share params and innovation table")
	}

	child.MutateWeights()
	if reflect.DeepEqual(child.ConnectionGenes(), g.ConnectionGenes()) {
		t.Fatal("mutating the copy changed nothing or aliased the parent")
	}
	if g.Fitness() != 3 {
		t.Fatalf("parent fitness changed: %f", g.Fitness())
	}
}

func TestGenomeMutationIsReproducible(t *testing.T) {
	params := DefaultMutationParams()
	params.NewNodeRate = 0.5
	params.NewConnectionRate = 0.5
	run := func() []ConnectionGene {
		g, err := New(3, 2, 77, params, nil)
		if err != nil {
			t.Fatalf("new genome: %v", err)
		}
		for i := 0; i < 30; i++ {
			g = g.Copy()
			g.Mutate()
		}
		return g.ConnectionGenes()
	}
	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different genomes:\n%v\n%v", first, second)
	}
}
