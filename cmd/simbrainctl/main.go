package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"simbrain/internal/evo"
	"simbrain/internal/genotype"
	"simbrain/internal/networks"
	"simbrain/internal/nn"
	"simbrain/internal/platform"
	"simbrain/internal/scape"
	"simbrain/internal/stats"
	"simbrain/internal/storage"
)

const defaultDBPath = "simbrain.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "evolve":
		return runEvolve(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "hopfield":
		return runHopfield(ctx, args[1:])
	case "esn":
		return runESN(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func openStore(ctx context.Context, kind, dbPath string) (storage.Store, error) {
	store, err := storage.NewStore(kind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func runEvolve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evolve", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional evolve config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	scapeName := fs.String("scape", "xor", "scape name: xor|pattern")
	dataPath := fs.String("data", "", "pattern scape CSV path")
	population := fs.Int("pop", 50, "population size")
	generations := fs.Int("gens", 100, "generation count")
	seed := fs.Uint64("seed", 1, "rng seed")
	workers := fs.Int("workers", 4, "worker count")
	eliminationRate := fs.Float64("elimination-rate", 0.5, "fraction of each generation eliminated")
	crossoverRate := fs.Float64("crossover-rate", 0, "chance an offspring is bred from two survivors")
	fitnessGoal := fs.Float64("fitness-goal", math.Inf(1), "stop once the top fitness exceeds this value")
	evalTimeoutMS := fs.Int("eval-timeout-ms", 0, "per-generation evaluation deadline in milliseconds (0 disables)")
	settle := fs.Int("settle", 0, "network ticks per input (0 derives from hidden node count)")
	nodeRate := fs.Float64("node-rate", 0.05, "add-node mutation rate")
	connRate := fs.Float64("conn-rate", 0.05, "add-connection mutation rate")
	amplitude := fs.Float64("amplitude", 0.1, "weight mutation amplitude")
	verbose := fs.Bool("verbose", false, "log per-generation progress to stderr")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req := evolveRequest{
		RunID:           *runID,
		Scape:           *scapeName,
		Data:            *dataPath,
		Population:      *population,
		Generations:     *generations,
		Seed:            *seed,
		Workers:         *workers,
		EliminationRate: *eliminationRate,
		CrossoverRate:   *crossoverRate,
		FitnessGoal:     *fitnessGoal,
		EvalTimeout:     time.Duration(*evalTimeoutMS) * time.Millisecond,
		Settle:          *settle,
		NodeRate:        *nodeRate,
		ConnRate:        *connRate,
		Amplitude:       *amplitude,
	}
	if *configPath != "" {
		loaded, err := loadEvolveRequest(*configPath, req)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		req = overrideFromFlags(loaded, setFlags, req)
	}

	s, err := scape.FromName(req.Scape, req.Data)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	runner := &platform.Runner{
		Store:  store,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
	summary, err := runner.Run(ctx, platform.RunConfig{
		RunID:       req.RunID,
		Scape:       s,
		Pool:        req.poolConfig(),
		Generations: req.Generations,
		FitnessGoal: req.FitnessGoal,
	})
	if err != nil {
		return err
	}

	fmt.Printf("run_id=%s scape=%s generations=%d best_fitness=%.6f top_genome_id=%d solved=%t failures=%d\n",
		summary.RunID, s.Name(), summary.Generations, summary.BestFitness, summary.TopGenomeID, summary.Solved, summary.Failures)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if len(runs) > *limit {
		runs = runs[:*limit]
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s scape=%s started_at=%s seed=%d population=%d generations=%d best_fitness=%.6f solved=%t\n",
			r.ID, r.Scape, r.StartedAt.Format(time.RFC3339), r.Seed, r.Population, r.Generations, r.BestFitness, r.Solved)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("history requires --run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	diagnostics, ok, err := store.GetGenerationDiagnostics(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok || len(diagnostics) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best_fitness=%.6f mean_fitness=%.6f min_fitness=%.6f std_fitness=%.6f failures=%d\n",
			d.Generation, d.BestFitness, d.MeanFitness, d.MinFitness, d.StdFitness, d.Failures)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	showGenes := fs.Bool("genes", false, "print every connection gene")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("top requires --run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	rec, ok, err := store.GetRun(ctx, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", *runID)
	}
	g, err := genotype.LoadGenome(ctx, store, *runID, rec.TopGenomeID, genotype.DefaultMutationParams())
	if err != nil {
		return err
	}

	hidden := 0
	for _, n := range g.NodeGenes() {
		if n.Type == genotype.Hidden {
			hidden++
		}
	}
	fmt.Printf("run_id=%s genome_id=%d fitness=%.6f inputs=%d outputs=%d hidden=%d connections=%d enabled=%d\n",
		*runID, g.ID(), rec.BestFitness, g.Inputs(), g.Outputs(), hidden, len(g.ConnectionGenes()), g.EnabledConnections())
	if *showGenes {
		for _, c := range g.ConnectionGenes() {
			fmt.Printf("connection=%d in=%d out=%d weight=%.6f enabled=%t innovation=%d\n",
				c.ID, c.InNode, c.OutNode, c.Weight, c.Enabled, c.Innovation)
		}
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	outDir := fs.String("out", "exports", "output directory")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("export requires --run-id")
	}

	store, err := openStore(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	artifacts, err := stats.CollectRunArtifacts(ctx, store, *runID)
	if err != nil {
		return err
	}
	dir, err := stats.WriteRunArtifacts(*outDir, artifacts)
	if err != nil {
		return err
	}
	fmt.Printf("run_id=%s export_dir=%s generations=%d\n", *runID, dir, len(artifacts.BestByGeneration))
	return nil
}

func runHopfield(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("hopfield", flag.ContinueOnError)
	patternText := fs.String("pattern", "1,-1,1,-1,1,-1,1,-1,1", "comma-separated bipolar pattern to store")
	flip := fs.Int("flip", 0, "index of the bit corrupted before recall")
	sweeps := fs.Int("sweeps", 0, "update sweeps during recall (0 means pattern length)")
	orderName := fs.String("order", "random", "update order: random|sequential|synchronous")
	seed := fs.Uint64("seed", 1, "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pattern, err := parseVector(*patternText)
	if err != nil {
		return err
	}
	if *flip < 0 || *flip >= len(pattern) {
		return fmt.Errorf("flip index %d outside pattern of length %d", *flip, len(pattern))
	}
	order, err := parseOrder(*orderName)
	if err != nil {
		return err
	}
	if *sweeps <= 0 {
		*sweeps = len(pattern)
	}

	cfg := networks.DefaultHopfieldConfig(len(pattern))
	cfg.Order = order
	h, err := networks.NewHopfield(nil, cfg, rand.New(rand.NewPCG(*seed, *seed)))
	if err != nil {
		return err
	}
	if err := h.SetPattern(pattern); err != nil {
		return err
	}
	h.Train()

	corrupted := append([]float64(nil), pattern...)
	corrupted[*flip] = -corrupted[*flip]
	if err := h.SetPattern(corrupted); err != nil {
		return err
	}
	for i := 0; i < *sweeps; i++ {
		h.Update()
	}
	recalled := h.Pattern()
	recovered := true
	for i := range pattern {
		if recalled[i] != pattern[i] {
			recovered = false
		}
	}

	fmt.Printf("stored=%s corrupted=%s recalled=%s recovered=%t energy=%.6f\n",
		formatVector(pattern), formatVector(corrupted), formatVector(recalled), recovered, h.Energy())
	return nil
}

func runESN(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("esn", flag.ContinueOnError)
	inputs := fs.Int("inputs", 1, "input neuron count")
	reservoir := fs.Int("reservoir", 100, "reservoir neuron count")
	outputs := fs.Int("outputs", 1, "output neuron count")
	radius := fs.Float64("radius", 0.98, "target spectral radius of the reservoir")
	sparsity := fs.Float64("sparsity", 0.05, "reservoir connection density")
	ridge := fs.Float64("ridge", 0, "ridge regression penalty for the readout (0 uses least squares)")
	trainSteps := fs.Int("train-steps", 0, "train a one-step-ahead sine predictor for N steps (0 skips)")
	seed := fs.Uint64("seed", 1, "rng seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := networks.DefaultESNConfig(*inputs, *reservoir, *outputs)
	cfg.SpectralRadius = *radius
	cfg.ResSparsity = *sparsity
	cfg.Ridge = *ridge
	esn, err := networks.NewEchoStateNetwork(nil, cfg, rand.New(rand.NewPCG(*seed, *seed)))
	if err != nil {
		return err
	}
	measured, err := nn.SpectralRadius(esn.ReservoirWeights())
	if err != nil {
		return err
	}
	fmt.Printf("reservoir=%d spectral_radius=%.6f target=%.6f synapses=%d\n",
		*reservoir, measured, *radius, esn.Network().SynapseCount())

	if *trainSteps <= 0 {
		return nil
	}
	if *inputs != 1 || *outputs != 1 {
		return errors.New("sine training requires --inputs 1 --outputs 1")
	}
	series := make([][]float64, *trainSteps+1)
	for t := range series {
		series[t] = []float64{0.5 * math.Sin(float64(t)/4)}
	}
	mse, err := esn.Train(series[:*trainSteps], series[1:])
	if err != nil {
		return err
	}
	fmt.Printf("train_steps=%d mse=%.6g\n", *trainSteps, mse)
	return nil
}

func parseOrder(name string) (networks.UpdateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "random":
		return networks.RandomOrder, nil
	case "sequential":
		return networks.Sequential, nil
	case "synchronous", "sync":
		return networks.Synchronous, nil
	default:
		return 0, fmt.Errorf("unsupported update order: %s", name)
	}
}

func parseVector(text string) ([]float64, error) {
	fields := strings.Split(text, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("parse vector element %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func formatVector(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: simbrainctl <evolve|runs|history|top|export|hopfield|esn> [flags]", msg)
}

// poolConfig maps the request onto an evo.Config.
func (r evolveRequest) poolConfig() evo.Config {
	cfg := evo.DefaultConfig()
	cfg.InstanceCount = r.Population
	cfg.Seed = r.Seed
	cfg.Workers = r.Workers
	cfg.EliminationRate = r.EliminationRate
	cfg.CrossoverRate = r.CrossoverRate
	cfg.EvalTimeout = r.EvalTimeout
	cfg.Settle = r.Settle
	cfg.Mutation.NewNodeRate = r.NodeRate
	cfg.Mutation.NewConnectionRate = r.ConnRate
	cfg.Mutation.StrengthAmplitude = r.Amplitude
	return cfg
}
