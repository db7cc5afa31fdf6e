// Package decay attenuates stimulus vectors by distance.
package decay

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"simbrain/internal/randvar"
)

var ErrInvalidFunction = errors.New("invalid decay function")

type Kind int

const (
	Step Kind = iota
	Linear
	Gaussian
	Quadratic
)

func Kinds() []Kind {
	return []Kind{Step, Linear, Gaussian, Quadratic}
}

func (k Kind) String() string {
	switch k {
	case Step:
		return "step"
	case Linear:
		return "linear"
	case Gaussian:
		return "gaussian"
	case Quadratic:
		return "quadratic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(name string) (Kind, error) {
	normalized := strings.TrimSpace(strings.ToLower(name))
	for _, kind := range Kinds() {
		if kind.String() == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidFunction, name)
}

// Function maps a distance to a factor in [0, 1]. The factor peaks at
// PeakDistance and falls off over Dispersion.
type Function struct {
	Kind         Kind
	Dispersion   float64
	PeakDistance float64
	// Noise, when set, is drawn once per stimulus component and added after
	// scaling.
	Noise *randvar.Variate
}

func New(kind Kind, dispersion, peakDistance float64) (Function, error) {
	if kind < Step || kind > Quadratic {
		return Function{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidFunction, int(kind))
	}
	if dispersion < 0 {
		return Function{}, fmt.Errorf("%w: dispersion must be >= 0", ErrInvalidFunction)
	}
	return Function{Kind: kind, Dispersion: dispersion, PeakDistance: peakDistance}, nil
}

func (f Function) ScalingFactor(distance float64) float64 {
	d := math.Abs(distance - f.PeakDistance)
	if f.Dispersion == 0 {
		if d == 0 {
			return 1
		}
		return 0
	}
	switch f.Kind {
	case Step:
		if d <= f.Dispersion {
			return 1
		}
		return 0
	case Linear:
		return math.Max(0, 1-d/f.Dispersion)
	case Quadratic:
		r := d / f.Dispersion
		return math.Max(0, 1-r*r)
	case Gaussian:
		sigma := 0.5 * f.Dispersion
		return math.Exp(-(d * d) / (2 * sigma * sigma))
	default:
		return 0
	}
}

// Apply returns a scaled copy of stimulus.
func (f Function) Apply(stimulus []float64, distance float64) []float64 {
	out := make([]float64, len(stimulus))
	floats.ScaleTo(out, f.ScalingFactor(distance), stimulus)
	if f.Noise != nil {
		for i := range out {
			out[i] += f.Noise.Draw()
		}
	}
	return out
}
