package stats

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"simbrain/internal/model"
	"simbrain/internal/storage"
)

const runIndexFile = "run_index.json"

var ErrRunNotFound = errors.New("run not found")

// RunArtifacts is everything exported for one stored run.
type RunArtifacts struct {
	Run              model.RunRecord               `json:"run"`
	BestByGeneration []float64                     `json:"best_by_generation"`
	Diagnostics      []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	TopGenome        *model.GenomeRecord           `json:"top_genome,omitempty"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Scape        string  `json:"scape"`
	Generations  int     `json:"generations"`
	BestFitness  float64 `json:"best_fitness"`
	Solved       bool    `json:"solved"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// CollectRunArtifacts loads a run and its history from store.
func CollectRunArtifacts(ctx context.Context, store storage.Store, runID string) (RunArtifacts, error) {
	run, ok, err := store.GetRun(ctx, runID)
	if err != nil {
		return RunArtifacts{}, err
	}
	if !ok {
		return RunArtifacts{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	artifacts := RunArtifacts{Run: run}

	history, _, err := store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return RunArtifacts{}, err
	}
	artifacts.BestByGeneration = history

	diagnostics, _, err := store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return RunArtifacts{}, err
	}
	artifacts.Diagnostics = diagnostics

	top, ok, err := store.GetGenome(ctx, runID, run.TopGenomeID)
	if err != nil {
		return RunArtifacts{}, err
	}
	if ok {
		artifacts.TopGenome = &top
	}
	return artifacts, nil
}

// WriteRunArtifacts writes the artifacts under baseDir/<run id> and records
// the run in the directory's index.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runID := artifacts.Run.ID
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	history := artifacts.BestByGeneration
	if history == nil {
		history = []float64{}
	}
	if err := writeJSON(filepath.Join(runDir, "fitness_history.json"), history); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if artifacts.TopGenome != nil {
		if err := writeJSON(filepath.Join(runDir, "top_genome.json"), artifacts.TopGenome); err != nil {
			return "", err
		}
	}
	if err := WriteFitnessSeries(runDir, history); err != nil {
		return "", err
	}

	created := artifacts.Run.FinishedAt
	if created.IsZero() {
		created = time.Now()
	}
	entry := RunIndexEntry{
		RunID:        runID,
		Scape:        artifacts.Run.Scape,
		Generations:  artifacts.Run.Generations,
		BestFitness:  artifacts.Run.BestFitness,
		Solved:       artifacts.Run.Solved,
		CreatedAtUTC: created.UTC().Format(time.RFC3339Nano),
	}
	if err := AppendRunIndex(baseDir, entry); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts reads back what WriteRunArtifacts wrote.
func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, error) {
	runDir := filepath.Join(baseDir, runID)
	var artifacts RunArtifacts
	if err := readJSON(filepath.Join(runDir, "run.json"), &artifacts.Run); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RunArtifacts{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return RunArtifacts{}, err
	}
	if err := readJSON(filepath.Join(runDir, "fitness_history.json"), &artifacts.BestByGeneration); err != nil {
		return RunArtifacts{}, err
	}
	if err := readJSON(filepath.Join(runDir, "generation_diagnostics.json"), &artifacts.Diagnostics); err != nil {
		return RunArtifacts{}, err
	}
	var top model.GenomeRecord
	err := readJSON(filepath.Join(runDir, "top_genome.json"), &top)
	switch {
	case err == nil:
		artifacts.TopGenome = &top
	case !errors.Is(err, os.ErrNotExist):
		return RunArtifacts{}, err
	}
	return artifacts, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	if err := readJSON(filepath.Join(baseDir, runIndexFile), &entries); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Later appends win ties.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// WriteFitnessSeries writes best fitness per generation as CSV, numbering
// generations from 1.
func WriteFitnessSeries(runDir string, bestByGeneration []float64) error {
	file, err := os.Create(filepath.Join(runDir, "fitness_series.csv"))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_fitness"}); err != nil {
		return err
	}
	for i, best := range bestByGeneration {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, "fitness_series.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
