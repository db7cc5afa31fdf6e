package stats

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"simbrain/internal/model"
	"simbrain/internal/storage"
)

func seededStore(t *testing.T) storage.Store {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init store: %v", err)
	}
	fitness := 3.5
	if err := store.SaveGenome(ctx, model.GenomeRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           "run-1",
		ID:              4,
		Inputs:          1,
		Outputs:         1,
		Nodes:           []model.NodeGeneRecord{{ID: 0, Type: "input", Rule: "linear"}, {ID: 1, Type: "output", Rule: "linear"}},
		Connections:     []model.ConnectionGeneRecord{{ID: 0, InNode: 0, OutNode: 1, Weight: 0.5, Enabled: true}},
		Fitness:         &fitness,
	}); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2.25, 3.5}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.SaveGenerationDiagnostics(ctx, "run-1", []model.GenerationDiagnostics{
		{Generation: 0, BestFitness: 1, Evaluated: 4},
		{Generation: 1, BestFitness: 2.25, Evaluated: 4},
		{Generation: 2, BestFitness: 3.5, Evaluated: 4, Failures: 1},
	}); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	if err := store.SaveRun(ctx, model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              "run-1",
		Scape:           "xor",
		Generations:     3,
		BestFitness:     3.5,
		TopGenomeID:     4,
		Solved:          true,
		FinishedAt:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("save run: %v", err)
	}
	return store
}

func TestCollectAndWriteRunArtifacts(t *testing.T) {
	store := seededStore(t)
	artifacts, err := CollectRunArtifacts(context.Background(), store, "run-1")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if artifacts.TopGenome == nil || artifacts.TopGenome.ID != 4 {
		t.Fatalf("unexpected top genome: %+v", artifacts.TopGenome)
	}

	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, file := range []string{"run.json", "fitness_history.json", "generation_diagnostics.json", "top_genome.json", "fitness_series.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	loaded, err := ReadRunArtifacts(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(loaded.BestByGeneration, artifacts.BestByGeneration) {
		t.Fatalf("history mismatch: got=%v want=%v", loaded.BestByGeneration, artifacts.BestByGeneration)
	}
	if len(loaded.Diagnostics) != 3 || loaded.Diagnostics[2].Failures != 1 {
		t.Fatalf("unexpected diagnostics: %+v", loaded.Diagnostics)
	}
	if loaded.Run.TopGenomeID != 4 || !loaded.Run.Solved {
		t.Fatalf("unexpected run: %+v", loaded.Run)
	}
	if loaded.TopGenome == nil || loaded.TopGenome.Connections[0].Weight != 0.5 {
		t.Fatalf("unexpected loaded top genome: %+v", loaded.TopGenome)
	}

	series, ok, err := ReadFitnessSeries(baseDir, "run-1")
	if err != nil || !ok {
		t.Fatalf("read series: ok=%t err=%v", ok, err)
	}
	if !reflect.DeepEqual(series, []float64{1, 2.25, 3.5}) {
		t.Fatalf("series mismatch: got=%v want=%v", series, []float64{1, 2.25, 3.5})
	}
}

func TestCollectRunArtifactsMissingRun(t *testing.T) {
	store := seededStore(t)
	if _, err := CollectRunArtifacts(context.Background(), store, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := ReadRunArtifacts(t.TempDir(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound from read, got %v", err)
	}
}

func TestWriteRunArtifactsWithoutTopGenome(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, RunArtifacts{Run: model.RunRecord{ID: "bare"}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(runDir, "top_genome.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no top genome file, got %v", err)
	}
	loaded, err := ReadRunArtifacts(baseDir, "bare")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if loaded.TopGenome != nil || len(loaded.BestByGeneration) != 0 {
		t.Fatalf("unexpected artifacts: %+v", loaded)
	}
	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestRunIndexOrdering(t *testing.T) {
	baseDir := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "a", CreatedAtUTC: "2024-01-01T00:00:00Z"},
		{RunID: "b", CreatedAtUTC: "2024-02-01T00:00:00Z"},
		{RunID: "c", CreatedAtUTC: "2024-01-01T00:00:00Z"},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", Scape: "xor", CreatedAtUTC: "2024-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, entry := range index {
		got = append(got, entry.RunID)
	}
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("index order: got=%v want=%v", got, want)
	}
	if index[2].Scape != "xor" {
		t.Fatalf("expected replaced entry, got %+v", index[2])
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	index, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 0 {
		t.Fatalf("expected empty index, got %v", index)
	}
	if _, ok, err := ReadFitnessSeries(t.TempDir(), "none"); ok || err != nil {
		t.Fatalf("expected missing series, got ok=%t err=%v", ok, err)
	}
}
