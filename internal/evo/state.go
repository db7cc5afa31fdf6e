package evo

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidStateTransition = errors.New("invalid state transition")

// State is a pool's position in the generation cycle
// new_gen -> evaluated -> sorted -> eliminated -> new_gen.
type State int

const (
	NewGen State = iota
	Evaluated
	Sorted
	Eliminated
)

func (s State) String() string {
	switch s {
	case NewGen:
		return "new_gen"
	case Evaluated:
		return "evaluated"
	case Sorted:
		return "sorted"
	case Eliminated:
		return "eliminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func ParseState(name string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "new_gen":
		return NewGen, nil
	case "evaluated":
		return Evaluated, nil
	case "sorted":
		return Sorted, nil
	case "eliminated":
		return Eliminated, nil
	default:
		return 0, fmt.Errorf("unknown pool state %q", name)
	}
}

// StateError reports a pool operation called from the wrong state.
type StateError struct {
	Op   string
	Have State
	Want State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: pool is %s, expecting %s", e.Op, e.Have, e.Want)
}

func (e *StateError) Unwrap() error { return ErrInvalidStateTransition }
