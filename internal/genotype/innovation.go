package genotype

import "sync"

type innovationKey struct {
	in  int
	out int
}

// InnovationTable hands out historical markings. The same (in, out) pair
// always gets the same innovation number, and splitting the same
// connection gets the same new node ID, across every genome sharing the
// table.
type InnovationTable struct {
	mu             sync.Mutex
	nextInnovation int
	nextNode       int
	connections    map[innovationKey]int
	splits         map[int]int
}

// NewInnovationTable reserves node IDs below firstNodeID for the fixed
// input and output nodes.
func NewInnovationTable(firstNodeID int) *InnovationTable {
	return &InnovationTable{
		nextNode:    firstNodeID,
		connections: make(map[innovationKey]int),
		splits:      make(map[int]int),
	}
}

func (t *InnovationTable) Innovation(in, out int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := innovationKey{in: in, out: out}
	if id, ok := t.connections[key]; ok {
		return id
	}
	id := t.nextInnovation
	t.nextInnovation++
	t.connections[key] = id
	return id
}

// SplitNode returns the hidden node ID created by splitting the connection
// with the given innovation number.
func (t *InnovationTable) SplitNode(innovation int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.splits[innovation]; ok {
		return id
	}
	id := t.nextNode
	t.nextNode++
	t.splits[innovation] = id
	return id
}

// FreshNode returns a node ID that no split has used.
func (t *InnovationTable) FreshNode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextNode
	t.nextNode++
	return id
}

// observe moves the counters past IDs loaded from a stored genome.
func (t *InnovationTable) observe(nodeID int, conns []ConnectionGene) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if nodeID >= t.nextNode {
		t.nextNode = nodeID + 1
	}
	for _, c := range conns {
		key := innovationKey{in: c.InNode, out: c.OutNode}
		if _, ok := t.connections[key]; !ok {
			t.connections[key] = c.Innovation
		}
		if c.Innovation >= t.nextInnovation {
			t.nextInnovation = c.Innovation + 1
		}
	}
}

func (t *InnovationTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextInnovation
}
