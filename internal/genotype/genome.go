package genotype

import (
	"fmt"
	"math"
	"math/rand/v2"

	"simbrain/internal/nn"
)

// seedStream decorrelates the second PCG word from the seed.
const seedStream = 0x9e3779b97f4a7c15

// Genome is a NEAT-style encoding of a network: node genes, connection
// genes with innovation numbers, and its own random stream so mutations are
// reproducible regardless of evaluation order.
type Genome struct {
	id      int
	inputs  int
	outputs int

	nodes      []NodeGene
	conns      []ConnectionGene
	nextConnID int

	params *MutationParams
	table  *InnovationTable
	src    *rand.PCG
	rng    *rand.Rand

	fitness float64
}

// New creates a genome with inputs input nodes and outputs output nodes and
// applies one add-connection mutation. A nil table starts a private one.
func New(inputs, outputs int, seed uint64, params *MutationParams, table *InnovationTable) (*Genome, error) {
	if inputs < 1 || outputs < 1 {
		return nil, fmt.Errorf("%w: genome needs at least one input and one output", nn.ErrInvalidParameter)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewInnovationTable(inputs + outputs)
	}
	g := &Genome{
		inputs:  inputs,
		outputs: outputs,
		params:  params,
		table:   table,
		fitness: math.NaN(),
	}
	g.seed(seed, seed^seedStream)
	for i := 0; i < inputs; i++ {
		g.nodes = append(g.nodes, NodeGene{ID: i, Type: Input, Rule: DefaultIORule})
	}
	for i := 0; i < outputs; i++ {
		g.nodes = append(g.nodes, NodeGene{ID: inputs + i, Type: Output, Rule: DefaultIORule})
	}
	g.AddConnection()
	return g, nil
}

func (g *Genome) seed(a, b uint64) {
	g.src = rand.NewPCG(a, b)
	g.rng = rand.New(g.src)
}

// Copy returns a deep copy with an unset fitness and a new random stream
// seeded from this genome's stream. Gene IDs are preserved.
func (g *Genome) Copy() *Genome {
	child := &Genome{
		id:         g.id,
		inputs:     g.inputs,
		outputs:    g.outputs,
		nodes:      append([]NodeGene(nil), g.nodes...),
		conns:      append([]ConnectionGene(nil), g.conns...),
		nextConnID: g.nextConnID,
		params:     g.params,
		table:      g.table,
		fitness:    math.NaN(),
	}
	child.seed(g.rng.Uint64(), g.rng.Uint64())
	return child
}

func (g *Genome) ID() int                  { return g.id }
func (g *Genome) SetID(id int)             { g.id = id }
func (g *Genome) Inputs() int              { return g.inputs }
func (g *Genome) Outputs() int             { return g.outputs }
func (g *Genome) Params() *MutationParams  { return g.params }
func (g *Genome) Table() *InnovationTable  { return g.table }
func (g *Genome) Fitness() float64         { return g.fitness }
func (g *Genome) SetFitness(value float64) { g.fitness = value }

// Evaluated reports whether a fitness has been assigned since the last
// mutation.
func (g *Genome) Evaluated() bool { return !math.IsNaN(g.fitness) }

func (g *Genome) NodeGenes() []NodeGene {
	return append([]NodeGene(nil), g.nodes...)
}

func (g *Genome) ConnectionGenes() []ConnectionGene {
	return append([]ConnectionGene(nil), g.conns...)
}

func (g *Genome) EnabledConnections() int {
	count := 0
	for _, c := range g.conns {
		if c.Enabled {
			count++
		}
	}
	return count
}

func (g *Genome) node(id int) (NodeGene, bool) {
	for _, n := range g.nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeGene{}, false
}

func (g *Genome) hasConnection(in, out int) bool {
	for _, c := range g.conns {
		if c.InNode == in && c.OutNode == out {
			return true
		}
	}
	return false
}

func (g *Genome) appendConnection(in, out int, weight float64, enabled bool) {
	g.conns = append(g.conns, ConnectionGene{
		ID:         g.nextConnID,
		InNode:     in,
		OutNode:    out,
		Weight:     weight,
		Enabled:    enabled,
		Innovation: g.table.Innovation(in, out),
	})
	g.nextConnID++
}
