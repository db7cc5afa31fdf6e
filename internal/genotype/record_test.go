package genotype

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestRecordRoundTripContinuesRandomStream(t *testing.T) {
	g := newTestGenome(t, 2, 2, 21)
	g.SetID(5)
	for i := 0; i < 5; i++ {
		g.AddNode()
		g.AddConnection()
	}
	g.SetFitness(1.75)

	rec, err := g.ToRecord("run-x")
	if err != nil {
		t.Fatalf("to record: %v", err)
	}
	if rec.RunID != "run-x" || rec.ID != 5 || rec.Fitness == nil || *rec.Fitness != 1.75 {
		t.Fatalf("unexpected record header: %+v", rec)
	}
	restored, err := FromRecord(rec, g.Params(), nil)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if !reflect.DeepEqual(restored.NodeGenes(), g.NodeGenes()) || !reflect.DeepEqual(restored.ConnectionGenes(), g.ConnectionGenes()) {
		t.Fatal("restored genes differ")
	}
	if restored.Fitness() != 1.75 {
		t.Fatalf("restored fitness: got=%f want=1.75", restored.Fitness())
	}

	g.Mutate()
	restored.Mutate()
	if !reflect.DeepEqual(restored.ConnectionGenes(), g.ConnectionGenes()) {
		t.Fatal("restored genome diverged from original after identical mutation")
	}
}

func TestRecordFitnessStates(t *testing.T) {
	g := newTestGenome(t, 1, 1, 1)
	rec, err := g.ToRecord("r")
	if err != nil {
		t.Fatalf("to record: %v", err)
	}
	if rec.Fitness != nil || rec.Failed {
		t.Fatalf("unevaluated genome should have no fitness: %+v", rec)
	}

	g.SetFitness(math.Inf(-1))
	rec, err = g.ToRecord("r")
	if err != nil {
		t.Fatalf("to record: %v", err)
	}
	if !rec.Failed || rec.Fitness != nil {
		t.Fatalf("failed genome should be marked failed: %+v", rec)
	}
	restored, err := FromRecord(rec, DefaultMutationParams(), nil)
	if err != nil {
		t.Fatalf("from record: %v", err)
	}
	if !math.IsInf(restored.Fitness(), -1) {
		t.Fatalf("restored failed fitness: %f", restored.Fitness())
	}
}

func TestFromRecordAdvancesSharedTable(t *testing.T) {
	g := newTestGenome(t, 2, 1, 4)
	g.AddNode()
	g.AddNode()
	rec, err := g.ToRecord("r")
	if err != nil {
		t.Fatalf("to record: %v", err)
	}

	table := NewInnovationTable(3)
	if _, err := FromRecord(rec, DefaultMutationParams(), table); err != nil {
		t.Fatalf("from record: %v", err)
	}
	maxNode := 0
	for _, n := range rec.Nodes {
		maxNode = max(maxNode, n.ID)
	}
	if fresh := table.FreshNode(); fresh <= maxNode {
		t.Fatalf("fresh node %d collides with restored ids up to %d", fresh, maxNode)
	}
	if table.Count() != len(rec.Connections) {
		t.Fatalf("innovation counter: got=%d want=%d", table.Count(), len(rec.Connections))
	}
}

func TestFromRecordValidation(t *testing.T) {
	g := newTestGenome(t, 2, 1, 4)
	rec, err := g.ToRecord("r")
	if err != nil {
		t.Fatalf("to record: %v", err)
	}

	missing := rec
	missing.Connections = append(missing.Connections[:0:0], rec.Connections...)
	missing.Connections[0].OutNode = 42
	if _, err := FromRecord(missing, DefaultMutationParams(), nil); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for dangling connection, got %v", err)
	}

	wrongShape := rec
	wrongShape.Inputs = 3
	if _, err := FromRecord(wrongShape, DefaultMutationParams(), nil); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for interface mismatch, got %v", err)
	}

	badType := rec
	badType.Nodes = append(badType.Nodes[:0:0], rec.Nodes...)
	badType.Nodes[0].Type = "sensor"
	if _, err := FromRecord(badType, DefaultMutationParams(), nil); !errors.Is(err, ErrInvalidGenome) {
		t.Fatalf("expected ErrInvalidGenome for unknown node type, got %v", err)
	}
}
