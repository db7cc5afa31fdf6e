package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"simbrain/internal/agent"
	"simbrain/internal/genotype"
	"simbrain/internal/model"
)

const seedStream = 0xda3e39cb94b95bdb

var (
	ErrEvaluationPanic = errors.New("evaluation panicked")
	ErrFitnessNotSet   = errors.New("evaluation did not set a fitness")
)

// EvalFunc scores one agent and must call a.SetFitness before returning.
// It runs concurrently with other evaluations and should honor ctx.
type EvalFunc func(ctx context.Context, a *agent.Agent) error

// Failure records an evaluation that ended in an error, a panic or the
// deadline. The genome's fitness is -Inf.
type Failure struct {
	GenomeID int
	Err      error
}

// Pool evolves a population of genomes one generation at a time. Its
// methods are not safe for concurrent use; only the evaluation callbacks
// run in parallel.
type Pool struct {
	cfg   Config
	eval  EvalFunc
	rng   *rand.Rand
	table *genotype.InnovationTable

	genomes     []*genotype.Genome
	state       State
	generation  int
	nextID      int
	failures    []Failure
	diagnostics []model.GenerationDiagnostics
}

func NewPool(cfg Config, eval EvalFunc) (*Pool, error) {
	if eval == nil {
		return nil, fmt.Errorf("evaluation function is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:   cfg,
		eval:  eval,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^seedStream)),
		table: genotype.NewInnovationTable(cfg.Inputs + cfg.Outputs),
	}
	for i := 0; i < cfg.InstanceCount; i++ {
		g, err := genotype.New(cfg.Inputs, cfg.Outputs, p.rng.Uint64(), cfg.Mutation, p.table)
		if err != nil {
			return nil, err
		}
		p.adopt(g)
	}
	return p, nil
}

func (p *Pool) adopt(g *genotype.Genome) {
	g.SetID(p.nextID)
	p.nextID++
	p.genomes = append(p.genomes, g)
}

func (p *Pool) Config() Config  { return p.cfg }
func (p *Pool) State() State    { return p.state }
func (p *Pool) Generation() int { return p.generation }
func (p *Pool) Size() int       { return len(p.genomes) }

// Failures lists the evaluations of the last Evaluate that scored -Inf.
func (p *Pool) Failures() []Failure {
	return append([]Failure(nil), p.failures...)
}

// Genomes returns the current population in pool order.
func (p *Pool) Genomes() []*genotype.Genome {
	return append([]*genotype.Genome(nil), p.genomes...)
}

// Diagnostics returns one entry per evaluated generation.
func (p *Pool) Diagnostics() []model.GenerationDiagnostics {
	return append([]model.GenerationDiagnostics(nil), p.diagnostics...)
}

// Evaluate builds an agent for every genome and runs the evaluation
// callback on each, fanned out over Config.Workers goroutines. Evaluations
// that fail, panic or miss the deadline score -Inf and are listed in
// Failures. Cancelling ctx aborts the generation with ctx's error.
func (p *Pool) Evaluate(ctx context.Context) error {
	if p.state == Evaluated {
		return nil
	}
	if p.state != NewGen {
		return &StateError{Op: "evaluate", Have: p.state, Want: NewGen}
	}

	evalCtx := ctx
	if p.cfg.EvalTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, p.cfg.EvalTimeout)
		defer cancel()
	}

	type result struct {
		idx     int
		fitness float64
		err     error
	}
	jobs := make(chan int)
	results := make(chan result, len(p.genomes))

	workerCount := min(p.cfg.Workers, len(p.genomes))
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				fitness, err := p.evaluateOne(evalCtx, p.genomes[idx])
				results <- result{idx: idx, fitness: fitness, err: err}
			}
		}()
	}

	for i := range p.genomes {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return err
	}

	p.failures = p.failures[:0]
	for res := range results {
		g := p.genomes[res.idx]
		g.SetFitness(res.fitness)
		if res.err != nil {
			p.failures = append(p.failures, Failure{GenomeID: g.ID(), Err: res.err})
		}
	}
	sort.Slice(p.failures, func(i, j int) bool {
		return p.failures[i].GenomeID < p.failures[j].GenomeID
	})
	p.diagnostics = append(p.diagnostics, p.summarize())
	p.state = Evaluated
	return nil
}

func (p *Pool) evaluateOne(ctx context.Context, g *genotype.Genome) (float64, error) {
	failed := math.Inf(-1)
	if err := ctx.Err(); err != nil {
		return failed, err
	}
	a, err := agent.New(g, p.cfg.Settle)
	if err != nil {
		return failed, err
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: genome %d: %v", ErrEvaluationPanic, g.ID(), r)
			}
		}()
		done <- p.eval(ctx, a)
	}()

	select {
	case err := <-done:
		if err != nil {
			return failed, err
		}
		fitness := a.Fitness()
		if math.IsNaN(fitness) {
			return failed, fmt.Errorf("%w: genome %d", ErrFitnessNotSet, g.ID())
		}
		return fitness, nil
	case <-ctx.Done():
		return failed, ctx.Err()
	}
}

// Sort orders the population by fitness, highest first. Equal fitnesses
// keep their relative order.
func (p *Pool) Sort() error {
	if p.state == Sorted {
		return nil
	}
	if p.state != Evaluated {
		return &StateError{Op: "sort", Have: p.state, Want: Evaluated}
	}
	sort.SliceStable(p.genomes, func(i, j int) bool {
		return rank(p.genomes[i]) > rank(p.genomes[j])
	})
	p.state = Sorted
	return nil
}

// Eliminate drops the least fit genomes, keeping the top
// (1 - EliminationRate) fraction rounded down, and at least one.
func (p *Pool) Eliminate() error {
	if p.state == Eliminated {
		return nil
	}
	if p.state != Sorted {
		return &StateError{Op: "eliminate", Have: p.state, Want: Sorted}
	}
	keep := p.cfg.survivors(len(p.genomes))
	p.genomes = append([]*genotype.Genome(nil), p.genomes[:keep]...)
	p.state = Eliminated
	return nil
}

// Reproduce refills the population to InstanceCount with mutated offspring
// of uniformly chosen survivors and starts the next generation.
func (p *Pool) Reproduce() error {
	if p.state == NewGen {
		return nil
	}
	if p.state != Eliminated {
		return &StateError{Op: "reproduce", Have: p.state, Want: Eliminated}
	}
	survivors := len(p.genomes)
	for len(p.genomes) < p.cfg.InstanceCount {
		child, err := p.offspring(p.genomes[p.rng.IntN(survivors)], survivors)
		if err != nil {
			return err
		}
		child.Mutate()
		p.adopt(child)
	}
	p.generation++
	p.state = NewGen
	return nil
}

func (p *Pool) offspring(parent *genotype.Genome, survivors int) (*genotype.Genome, error) {
	if survivors < 2 || p.cfg.CrossoverRate == 0 || p.rng.Float64() >= p.cfg.CrossoverRate {
		return parent.Copy(), nil
	}
	mate := p.genomes[p.rng.IntN(survivors)]
	if mate == parent {
		return parent.Copy(), nil
	}
	return genotype.Crossover(parent, mate)
}

// NewGeneration sorts, eliminates and reproduces.
func (p *Pool) NewGeneration() error {
	if err := p.Sort(); err != nil {
		return err
	}
	if err := p.Eliminate(); err != nil {
		return err
	}
	return p.Reproduce()
}

// Evolve runs up to maxGenerations generations and stops early once the
// top fitness exceeds threshold. It returns the top genome of the last
// evaluated generation.
func (p *Pool) Evolve(ctx context.Context, maxGenerations int, threshold float64) (*genotype.Genome, error) {
	if maxGenerations < 1 {
		return nil, fmt.Errorf("max generations must be > 0")
	}
	if p.state == Sorted || p.state == Eliminated {
		if err := p.NewGeneration(); err != nil {
			return nil, err
		}
	}
	for i := 0; i < maxGenerations; i++ {
		if err := p.Evaluate(ctx); err != nil {
			return nil, err
		}
		if err := p.Sort(); err != nil {
			return nil, err
		}
		if top := p.genomes[0]; top.Fitness() > threshold || i == maxGenerations-1 {
			return top, nil
		}
		if err := p.NewGeneration(); err != nil {
			return nil, err
		}
	}
	return p.genomes[0], nil
}

// TopGenome returns the fittest genome, sorting an evaluated pool first.
// Before the first evaluation it returns the first genome.
func (p *Pool) TopGenome() *genotype.Genome {
	if p.state == Evaluated {
		_ = p.Sort()
	}
	if len(p.genomes) == 0 {
		return nil
	}
	if p.state == NewGen {
		best := p.genomes[0]
		for _, g := range p.genomes[1:] {
			if rank(g) > rank(best) {
				best = g
			}
		}
		return best
	}
	return p.genomes[0]
}

func rank(g *genotype.Genome) float64 {
	f := g.Fitness()
	if math.IsNaN(f) {
		return math.Inf(-1)
	}
	return f
}
