package genotype

import (
	"errors"
	"fmt"
	"strings"

	"simbrain/internal/nn"
)

var ErrInvalidGenome = errors.New("invalid genome")

type NodeType int

const (
	Input NodeType = iota
	Hidden
	Output
)

func (t NodeType) String() string {
	switch t {
	case Input:
		return "input"
	case Hidden:
		return "hidden"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("node_type(%d)", int(t))
	}
}

func ParseNodeType(name string) (NodeType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "input":
		return Input, nil
	case "hidden":
		return Hidden, nil
	case "output":
		return Output, nil
	default:
		return 0, fmt.Errorf("%w: unknown node type %q", ErrInvalidGenome, name)
	}
}

const (
	DefaultIORule     = "linear"
	DefaultHiddenRule = "sigmoidal"
)

// NodeGene describes one neuron. Rule names an entry in the nn rule
// registry.
type NodeGene struct {
	ID   int
	Type NodeType
	Rule string
}

// ConnectionGene describes one synapse between two node genes, referenced
// by node ID.
type ConnectionGene struct {
	ID         int
	InNode     int
	OutNode    int
	Weight     float64
	Enabled    bool
	Innovation int
}

// MutationParams is shared by pointer between a pool and all of its
// genomes, so changing it affects every later mutation.
type MutationParams struct {
	NewNodeRate       float64
	NewConnectionRate float64
	StrengthAmplitude float64
	StrengthFloor     float64
	StrengthCeiling   float64
	// ClipAttempts is how many times an out-of-range weight perturbation is
	// redrawn before the result is clamped.
	ClipAttempts int
}

func DefaultMutationParams() *MutationParams {
	return &MutationParams{
		NewNodeRate:       0.05,
		NewConnectionRate: 0.05,
		StrengthAmplitude: 0.1,
		StrengthFloor:     -10,
		StrengthCeiling:   10,
		ClipAttempts:      10,
	}
}

func (p *MutationParams) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: mutation params are required", nn.ErrInvalidParameter)
	}
	if p.NewNodeRate < 0 || p.NewNodeRate > 1 {
		return fmt.Errorf("%w: new node rate %f outside [0,1]", nn.ErrInvalidParameter, p.NewNodeRate)
	}
	if p.NewConnectionRate < 0 || p.NewConnectionRate > 1 {
		return fmt.Errorf("%w: new connection rate %f outside [0,1]", nn.ErrInvalidParameter, p.NewConnectionRate)
	}
	if p.StrengthAmplitude < 0 {
		return fmt.Errorf("%w: strength amplitude must be >= 0", nn.ErrInvalidParameter)
	}
	if p.StrengthFloor >= p.StrengthCeiling {
		return fmt.Errorf("%w: strength floor %f must be below ceiling %f", nn.ErrInvalidParameter, p.StrengthFloor, p.StrengthCeiling)
	}
	if p.ClipAttempts < 0 {
		return fmt.Errorf("%w: clip attempts must be >= 0", nn.ErrInvalidParameter)
	}
	return nil
}
