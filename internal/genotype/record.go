package genotype

import (
	"fmt"
	"math"
	"math/rand/v2"

	"simbrain/internal/model"
	"simbrain/internal/storage"
)

// ToRecord captures the genome, including its random stream, for
// persistence under runID.
func (g *Genome) ToRecord(runID string) (model.GenomeRecord, error) {
	state, err := g.src.MarshalBinary()
	if err != nil {
		return model.GenomeRecord{}, fmt.Errorf("genome %d rng state: %w", g.id, err)
	}
	rec := model.GenomeRecord{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           runID,
		ID:              g.id,
		Inputs:          g.inputs,
		Outputs:         g.outputs,
		Nodes:           make([]model.NodeGeneRecord, 0, len(g.nodes)),
		Connections:     make([]model.ConnectionGeneRecord, 0, len(g.conns)),
		RNGState:        state,
	}
	for _, n := range g.nodes {
		rec.Nodes = append(rec.Nodes, model.NodeGeneRecord{ID: n.ID, Type: n.Type.String(), Rule: n.Rule})
	}
	for _, c := range g.conns {
		rec.Connections = append(rec.Connections, model.ConnectionGeneRecord{
			ID:         c.ID,
			InNode:     c.InNode,
			OutNode:    c.OutNode,
			Weight:     c.Weight,
			Enabled:    c.Enabled,
			Innovation: c.Innovation,
		})
	}
	switch {
	case math.IsInf(g.fitness, -1):
		rec.Failed = true
	case !math.IsNaN(g.fitness) && !math.IsInf(g.fitness, 0):
		f := g.fitness
		rec.Fitness = &f
	}
	return rec, nil
}

// FromRecord rebuilds a genome. The table, when shared, is advanced past
// every ID the record uses; a nil table starts a private one.
func FromRecord(rec model.GenomeRecord, params *MutationParams, table *InnovationTable) (*Genome, error) {
	if rec.Inputs < 1 || rec.Outputs < 1 {
		return nil, fmt.Errorf("%w: record %d has no inputs or outputs", ErrInvalidGenome, rec.ID)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = NewInnovationTable(rec.Inputs + rec.Outputs)
	}

	g := &Genome{
		id:      rec.ID,
		inputs:  rec.Inputs,
		outputs: rec.Outputs,
		params:  params,
		table:   table,
		fitness: math.NaN(),
	}
	counts := map[NodeType]int{}
	seen := make(map[int]struct{}, len(rec.Nodes))
	maxNode := -1
	for _, n := range rec.Nodes {
		nodeType, err := ParseNodeType(n.Type)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %d", ErrInvalidGenome, n.ID)
		}
		seen[n.ID] = struct{}{}
		counts[nodeType]++
		maxNode = max(maxNode, n.ID)
		g.nodes = append(g.nodes, NodeGene{ID: n.ID, Type: nodeType, Rule: n.Rule})
	}
	if counts[Input] != rec.Inputs || counts[Output] != rec.Outputs {
		return nil, fmt.Errorf("%w: record %d declares %dx%d but has %d inputs and %d outputs", ErrInvalidGenome, rec.ID, rec.Inputs, rec.Outputs, counts[Input], counts[Output])
	}
	for _, c := range rec.Connections {
		if _, ok := seen[c.InNode]; !ok {
			return nil, fmt.Errorf("%w: connection %d references missing node %d", ErrInvalidGenome, c.ID, c.InNode)
		}
		if _, ok := seen[c.OutNode]; !ok {
			return nil, fmt.Errorf("%w: connection %d references missing node %d", ErrInvalidGenome, c.ID, c.OutNode)
		}
		g.conns = append(g.conns, ConnectionGene{
			ID:         c.ID,
			InNode:     c.InNode,
			OutNode:    c.OutNode,
			Weight:     c.Weight,
			Enabled:    c.Enabled,
			Innovation: c.Innovation,
		})
		g.nextConnID = max(g.nextConnID, c.ID+1)
	}
	table.observe(maxNode, g.conns)

	if len(rec.RNGState) > 0 {
		g.src = &rand.PCG{}
		if err := g.src.UnmarshalBinary(rec.RNGState); err != nil {
			return nil, fmt.Errorf("%w: record %d rng state: %v", ErrInvalidGenome, rec.ID, err)
		}
		g.rng = rand.New(g.src)
	} else {
		g.seed(uint64(rec.ID), uint64(rec.ID)^seedStream)
	}

	switch {
	case rec.Failed:
		g.fitness = math.Inf(-1)
	case rec.Fitness != nil:
		g.fitness = *rec.Fitness
	}
	return g, nil
}
