package genotype

import (
	"context"
	"reflect"
	"testing"

	"simbrain/internal/storage"
)

func TestPopulationSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}

	params := DefaultMutationParams()
	table := NewInnovationTable(3)
	var genomes []*Genome
	for i := 0; i < 4; i++ {
		g, err := New(2, 1, uint64(i), params, table)
		if err != nil {
			t.Fatalf("new genome: %v", err)
		}
		g.SetID(i + 1)
		g.AddNode()
		genomes = append(genomes, g)
	}
	if err := SavePopulationSnapshot(ctx, store, "run-1", 6, "sorted", genomes); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	pop, loaded, err := LoadPopulationSnapshot(ctx, store, "run-1", params)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if pop.Generation != 6 || pop.State != "sorted" || !reflect.DeepEqual(pop.GenomeIDs, []int{1, 2, 3, 4}) {
		t.Fatalf("unexpected population record: %+v", pop)
	}
	for i, g := range loaded {
		if g.ID() != genomes[i].ID() || !reflect.DeepEqual(g.ConnectionGenes(), genomes[i].ConnectionGenes()) {
			t.Fatalf("genome %d differs after load", i)
		}
		if g.Table() != loaded[0].Table() {
			t.Fatal("loaded genomes must share one innovation table")
		}
	}

	single, err := LoadGenome(ctx, store, "run-1", 3, params)
	if err != nil {
		t.Fatalf("load genome: %v", err)
	}
	if single.ID() != 3 {
		t.Fatalf("unexpected genome id: %d", single.ID())
	}
	if _, err := LoadGenome(ctx, store, "run-1", 99, params); err == nil {
		t.Fatal("expected missing genome error")
	}
}

func TestSavePopulationSnapshotRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	g := newTestGenome(t, 1, 1, 1)
	if err := SavePopulationSnapshot(ctx, store, "run", 0, "new_gen", []*Genome{g, g}); err == nil {
		t.Fatal("expected duplicate id error")
	}
}
