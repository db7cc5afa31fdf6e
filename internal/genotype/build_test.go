package genotype

import (
	"testing"
)

func TestBuildNetworkRoundTrip(t *testing.T) {
	params := DefaultMutationParams()
	params.NewNodeRate = 0.4
	params.NewConnectionRate = 0.6
	g, err := New(3, 2, 99, params, nil)
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	for i := 0; i < 25; i++ {
		g.Mutate()
	}

	p, err := g.BuildNetwork()
	if err != nil {
		t.Fatalf("build network: %v", err)
	}
	clamped := 0
	for _, n := range p.Network.Neurons() {
		if n.Clamped() {
			clamped++
		}
	}
	if clamped != g.Inputs() || len(p.Inputs) != g.Inputs() {
		t.Fatalf("clamped neurons: got=%d want=%d", clamped, g.Inputs())
	}
	if len(p.Outputs) != g.Outputs() {
		t.Fatalf("output neurons: got=%d want=%d", len(p.Outputs), g.Outputs())
	}
	if got := p.Network.SynapseCount(); got != g.EnabledConnections() {
		t.Fatalf("synapse count: got=%d want=%d", got, g.EnabledConnections())
	}
	if p.Network.NeuronCount() != len(g.NodeGenes()) {
		t.Fatalf("neuron count: got=%d want=%d", p.Network.NeuronCount(), len(g.NodeGenes()))
	}

	for _, c := range g.ConnectionGenes() {
		src, ok := p.Neuron(c.InNode)
		if !ok {
			t.Fatalf("missing neuron for node %d", c.InNode)
		}
		tar, _ := p.Neuron(c.OutNode)
		s, connected := src.OutgoingTo(tar)
		if connected != c.Enabled {
			t.Fatalf("connection %d enabled=%t but synapse present=%t", c.ID, c.Enabled, connected)
		}
		if connected && s.Strength() != c.Weight {
			t.Fatalf("weight mismatch for connection %d: got=%f want=%f", c.ID, s.Strength(), c.Weight)
		}
	}
}

func TestBuildNetworkUnknownRule(t *testing.T) {
	g := newTestGenome(t, 1, 1, 1)
	g.nodes[1].Rule = "no-such-rule"
	if _, err := g.BuildNetwork(); err == nil {
		t.Fatal("expected unknown rule error")
	}
}
