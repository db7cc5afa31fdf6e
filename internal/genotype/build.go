package genotype

import (
	"fmt"

	"simbrain/internal/nn"
)

// Phenotype is the network built from a genome, with its neurons grouped by
// node type in gene order.
type Phenotype struct {
	Network *nn.Network
	Inputs  []*nn.Neuron
	Outputs []*nn.Neuron
	Hidden  []*nn.Neuron

	byNode map[int]*nn.Neuron
}

// Neuron returns the neuron built for the node gene with the given ID.
func (p *Phenotype) Neuron(nodeID int) (*nn.Neuron, bool) {
	n, ok := p.byNode[nodeID]
	return n, ok
}

// BuildNetwork expresses the genome: input nodes become clamped neurons,
// other nodes use their registered rule, and every enabled connection gene
// becomes a synapse bounded by the mutation strength range.
func (g *Genome) BuildNetwork() (*Phenotype, error) {
	p := &Phenotype{
		Network: nn.NewNetwork(),
		byNode:  make(map[int]*nn.Neuron, len(g.nodes)),
	}
	for _, node := range g.nodes {
		rule, err := nn.NewRule(node.Rule)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", node.ID, err)
		}
		n := p.Network.AddNeuron(rule)
		n.Label = fmt.Sprintf("%s:%d", node.Type, node.ID)
		p.byNode[node.ID] = n
		switch node.Type {
		case Input:
			n.SetClamped(true)
			p.Inputs = append(p.Inputs, n)
		case Output:
			p.Outputs = append(p.Outputs, n)
		default:
			p.Hidden = append(p.Hidden, n)
		}
	}
	nn.LineLayout{Spacing: 50, OriginY: 200}.Apply(p.Inputs)
	nn.GridLayout{HSpacing: 50, VSpacing: 50, OriginY: 100}.Apply(p.Hidden)
	nn.LineLayout{Spacing: 50}.Apply(p.Outputs)

	for _, c := range g.conns {
		if !c.Enabled {
			continue
		}
		src, ok := p.byNode[c.InNode]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d references missing node %d", ErrInvalidGenome, c.ID, c.InNode)
		}
		tar, ok := p.byNode[c.OutNode]
		if !ok {
			return nil, fmt.Errorf("%w: connection %d references missing node %d", ErrInvalidGenome, c.ID, c.OutNode)
		}
		s, err := p.Network.AddSynapse(src, tar, 0)
		if err != nil {
			return nil, err
		}
		if err := s.SetBounds(g.params.StrengthFloor, g.params.StrengthCeiling); err != nil {
			return nil, err
		}
		s.SetStrength(c.Weight)
	}
	return p, nil
}
