package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"simbrain/internal/model"
)

func TestDecodeGenomeFixture(t *testing.T) {
	genome := decodeGenomeFixture(t, "genome_v1.json")
	if genome.ID != 7 || genome.RunID != "run-fixture" {
		t.Fatalf("unexpected genome identity: run=%s id=%d", genome.RunID, genome.ID)
	}
	if len(genome.Nodes) != 4 || len(genome.Connections) != 4 {
		t.Fatalf("unexpected gene counts: nodes=%d connections=%d", len(genome.Nodes), len(genome.Connections))
	}
	if genome.Fitness == nil || *genome.Fitness != 2.5 {
		t.Fatalf("unexpected fitness: %v", genome.Fitness)
	}
	if genome.Connections[0].Enabled {
		t.Fatal("expected first connection disabled")
	}
}

func TestDecodeGenomeVersionMismatch(t *testing.T) {
	data, err := os.ReadFile(fixturePath("genome_v0.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, err := DecodeGenome(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodePopulationFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("population_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	population, err := DecodePopulation(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if population.Generation != 4 || population.State != "new_gen" {
		t.Fatalf("unexpected population: %+v", population)
	}
	if !reflect.DeepEqual(population.GenomeIDs, []int{7, 8, 9}) {
		t.Fatalf("unexpected genome ids: %v", population.GenomeIDs)
	}
}

func TestDecodeRunFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("run_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	run, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if run.Scape != "xor" || !run.Solved || run.TopGenomeID != 7 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if got := run.FinishedAt.Sub(run.StartedAt); got != 5*time.Second {
		t.Fatalf("unexpected run duration: %v", got)
	}
}

func TestGenomeRoundTripKeepsUnsetFitness(t *testing.T) {
	in := model.GenomeRecord{
		VersionedRecord: CurrentVersion(),
		RunID:           "r",
		ID:              3,
		Inputs:          1,
		Outputs:         1,
		Nodes:           []model.NodeGeneRecord{{ID: 0, Type: "input", Rule: "linear"}, {ID: 1, Type: "output", Rule: "linear"}},
		Failed:          true,
		RNGState:        []byte{1, 2, 3},
	}
	data, err := EncodeGenome(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeGenome(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Fitness != nil || !out.Failed {
		t.Fatalf("unexpected fitness fields: fitness=%v failed=%t", out.Fitness, out.Failed)
	}
	if !reflect.DeepEqual(out.RNGState, in.RNGState) {
		t.Fatalf("rng state mismatch: got=%v want=%v", out.RNGState, in.RNGState)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}

func decodeGenomeFixture(t *testing.T, name string) model.GenomeRecord {
	t.Helper()

	data, err := os.ReadFile(fixturePath(name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	genome, err := DecodeGenome(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return genome
}
