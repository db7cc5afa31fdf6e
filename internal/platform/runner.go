package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"simbrain/internal/evo"
	"simbrain/internal/genotype"
	"simbrain/internal/model"
	"simbrain/internal/scape"
	"simbrain/internal/storage"
)

type RunConfig struct {
	// RunID names the run in the store; empty means a fresh UUID.
	RunID string
	Scape scape.Scape
	// Pool's Inputs and Outputs are taken from the scape.
	Pool        evo.Config
	Generations int
	// FitnessGoal stops the run once the top fitness exceeds it; use
	// math.Inf(1) to run every generation.
	FitnessGoal float64
}

type RunSummary struct {
	RunID       string
	Generations int
	BestFitness float64
	TopGenomeID int
	Solved      bool
	History     []float64
	Diagnostics []model.GenerationDiagnostics
	Failures    int
}

// Runner drives evolutionary runs and persists their results. The store
// must already be initialized.
type Runner struct {
	Store  storage.Store
	Logger *slog.Logger
	Now    func() time.Time
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now()
}

func (r *Runner) Run(ctx context.Context, cfg RunConfig) (RunSummary, error) {
	if r.Store == nil {
		return RunSummary{}, fmt.Errorf("store is required")
	}
	if cfg.Scape == nil {
		return RunSummary{}, fmt.Errorf("scape is required")
	}
	if cfg.Generations <= 0 {
		return RunSummary{}, fmt.Errorf("generations must be > 0")
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	cfg.Pool.Inputs = cfg.Scape.Inputs()
	cfg.Pool.Outputs = cfg.Scape.Outputs()

	pool, err := evo.NewPool(cfg.Pool, scape.EvalFunc(cfg.Scape))
	if err != nil {
		return RunSummary{}, err
	}
	log := r.logger().With("run_id", runID, "scape", cfg.Scape.Name())
	started := r.now()
	log.Info("run started", "population", cfg.Pool.InstanceCount, "generations", cfg.Generations, "seed", cfg.Pool.Seed)

	summary := RunSummary{RunID: runID}
	var top *genotype.Genome
	for gen := 0; gen < cfg.Generations; gen++ {
		if err := pool.Evaluate(ctx); err != nil {
			return RunSummary{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		if err := pool.Sort(); err != nil {
			return RunSummary{}, err
		}
		top = pool.TopGenome()
		diagnostics := pool.Diagnostics()
		latest := diagnostics[len(diagnostics)-1]
		summary.History = append(summary.History, latest.BestFitness)
		summary.Failures += latest.Failures
		summary.Generations = gen + 1
		log.Debug("generation evaluated",
			"generation", gen,
			"best", latest.BestFitness,
			"mean", latest.MeanFitness,
			"failures", latest.Failures,
		)
		for _, f := range pool.Failures() {
			log.Warn("evaluation failed", "generation", gen, "genome_id", f.GenomeID, "error", f.Err)
		}

		if top.Fitness() > cfg.FitnessGoal {
			summary.Solved = true
			break
		}
		if gen == cfg.Generations-1 {
			break
		}
		if err := pool.NewGeneration(); err != nil {
			return RunSummary{}, err
		}
	}

	summary.Diagnostics = pool.Diagnostics()
	summary.TopGenomeID = top.ID()
	if f := top.Fitness(); !math.IsInf(f, 0) && !math.IsNaN(f) {
		summary.BestFitness = f
	}

	if err := r.persist(ctx, runID, cfg, pool, summary, started); err != nil {
		return RunSummary{}, err
	}
	log.Info("run finished",
		"generations", summary.Generations,
		"best", summary.BestFitness,
		"top_genome_id", summary.TopGenomeID,
		"solved", summary.Solved,
	)
	return summary, nil
}

func (r *Runner) persist(ctx context.Context, runID string, cfg RunConfig, pool *evo.Pool, summary RunSummary, started time.Time) error {
	if err := r.Store.SaveFitnessHistory(ctx, runID, summary.History); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := r.Store.SaveGenerationDiagnostics(ctx, runID, summary.Diagnostics); err != nil {
		return fmt.Errorf("save generation diagnostics: %w", err)
	}
	if err := genotype.SavePopulationSnapshot(ctx, r.Store, runID, pool.Generation(), pool.State().String(), pool.Genomes()); err != nil {
		return fmt.Errorf("save population: %w", err)
	}
	return r.Store.SaveRun(ctx, model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		Scape:           cfg.Scape.Name(),
		Seed:            cfg.Pool.Seed,
		Population:      cfg.Pool.InstanceCount,
		Generations:     summary.Generations,
		BestFitness:     summary.BestFitness,
		TopGenomeID:     summary.TopGenomeID,
		Solved:          summary.Solved,
		StartedAt:       started,
		FinishedAt:      r.now(),
	})
}
