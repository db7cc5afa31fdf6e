package genotype

import "math"

// Mutate applies the structural mutations with their configured rates,
// then perturbs every weight. Fitness is reset.
func (g *Genome) Mutate() {
	if g.rng.Float64() < g.params.NewNodeRate {
		g.AddNode()
	}
	if g.rng.Float64() < g.params.NewConnectionRate {
		g.AddConnection()
	}
	g.MutateWeights()
	g.fitness = math.NaN()
}

// AddNode splits a random enabled connection: the old gene is disabled,
// in->new gets weight 1 and new->out keeps the old weight. It reports false
// when no connection is enabled.
func (g *Genome) AddNode() bool {
	var enabled []int
	for i, c := range g.conns {
		if c.Enabled {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return false
	}
	idx := enabled[g.rng.IntN(len(enabled))]
	split := g.conns[idx]
	g.conns[idx].Enabled = false

	nodeID := g.table.SplitNode(split.Innovation)
	if _, exists := g.node(nodeID); exists {
		nodeID = g.table.FreshNode()
	}
	g.nodes = append(g.nodes, NodeGene{ID: nodeID, Type: Hidden, Rule: DefaultHiddenRule})
	g.appendConnection(split.InNode, nodeID, 1, true)
	g.appendConnection(nodeID, split.OutNode, split.Weight, true)
	return true
}

// AddConnection connects a random input or hidden node to a random hidden
// or output node that it is not already connected to. It reports false when
// every such pair is taken.
func (g *Genome) AddConnection() bool {
	type pair struct{ in, out int }
	var candidates []pair
	for _, src := range g.nodes {
		if src.Type == Output {
			continue
		}
		for _, tar := range g.nodes {
			if tar.Type == Input || tar.ID == src.ID {
				continue
			}
			if g.hasConnection(src.ID, tar.ID) {
				continue
			}
			candidates = append(candidates, pair{in: src.ID, out: tar.ID})
		}
	}
	if len(candidates) == 0 {
		return false
	}
	chosen := candidates[g.rng.IntN(len(candidates))]
	g.appendConnection(chosen.in, chosen.out, g.clamp(g.uniform(-1, 1)), true)
	return true
}

// MutateWeights adds amplitude * U(floor, ceiling) to every connection
// weight. A result outside [floor, ceiling] is redrawn up to ClipAttempts
// times and then clamped.
func (g *Genome) MutateWeights() {
	p := g.params
	for i := range g.conns {
		w := g.conns[i].Weight
		next := w + p.StrengthAmplitude*g.uniform(p.StrengthFloor, p.StrengthCeiling)
		for attempt := 0; attempt < p.ClipAttempts && !g.inRange(next); attempt++ {
			next = w + p.StrengthAmplitude*g.uniform(p.StrengthFloor, p.StrengthCeiling)
		}
		g.conns[i].Weight = g.clamp(next)
	}
}

func (g *Genome) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

func (g *Genome) inRange(w float64) bool {
	return w >= g.params.StrengthFloor && w <= g.params.StrengthCeiling
}

func (g *Genome) clamp(w float64) float64 {
	return math.Max(g.params.StrengthFloor, math.Min(g.params.StrengthCeiling, w))
}
