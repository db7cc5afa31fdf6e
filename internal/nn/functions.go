package nn

import (
	"fmt"
	"math"
	"strings"
)

// ScaleValue maps value from [min, max] to [-1, 1].
func ScaleValue(value, max, min float64) float64 {
	if max == min {
		return 0
	}
	return (value*2 - (max + min)) / (max - min)
}

// ScaleSlice maps each value from [min, max] to [-1, 1].
func ScaleSlice(values []float64, max, min float64) []float64 {
	out := make([]float64, len(values))
	for i, value := range values {
		out[i] = ScaleValue(value, max, min)
	}
	return out
}

// Sat clamps value to [min, max].
func Sat(value, max, min float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

// XX1 is the x/(x+1) rate code, zero for non-positive input.
func XX1(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x / (x + 1)
}

type SquashKind int

const (
	Logistic SquashKind = iota
	Tanh
	Arctan
)

func (k SquashKind) String() string {
	switch k {
	case Logistic:
		return "logistic"
	case Tanh:
		return "tanh"
	case Arctan:
		return "arctan"
	default:
		return fmt.Sprintf("squash(%d)", int(k))
	}
}

func ParseSquashKind(name string) (SquashKind, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "logistic", "sigmoid":
		return Logistic, nil
	case "tanh":
		return Tanh, nil
	case "arctan", "atan":
		return Arctan, nil
	default:
		return 0, fmt.Errorf("%w: unknown squash function %q", ErrInvalidParameter, name)
	}
}

// Squash evaluates the squashing function of kind scaled into [floor, ceil]
// with the given slope at the origin.
func Squash(kind SquashKind, x, ceil, floor, slope float64) float64 {
	switch kind {
	case Tanh:
		return TanhSquash(x, ceil, floor, slope)
	case Arctan:
		return ArctanSquash(x, ceil, floor, slope)
	default:
		return LogisticSquash(x, ceil, floor, slope)
	}
}

func SquashDerivative(kind SquashKind, x, ceil, floor, slope float64) float64 {
	switch kind {
	case Tanh:
		return TanhDerivative(x, ceil, floor, slope)
	case Arctan:
		return ArctanDerivative(x, ceil, floor, slope)
	default:
		return LogisticDerivative(x, ceil, floor, slope)
	}
}

// SquashInverse returns the input producing y. y is nudged inside the open
// range first so the result stays finite.
func SquashInverse(kind SquashKind, y, ceil, floor, slope float64) float64 {
	switch kind {
	case Tanh:
		return TanhInverse(y, ceil, floor, slope)
	case Arctan:
		return ArctanInverse(y, ceil, floor, slope)
	default:
		return LogisticInverse(y, ceil, floor, slope)
	}
}

func LogisticSquash(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return floor
	}
	return diff/(1+math.Exp(-4*slope*x/diff)) + floor
}

func LogisticDerivative(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return 0
	}
	s := 1 / (1 + math.Exp(-4*slope*x/diff))
	return 4 * slope * s * (1 - s)
}

func LogisticInverse(y, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 || slope == 0 {
		return 0
	}
	p := openUnit((y - floor) / diff)
	return diff / (4 * slope) * math.Log(p/(1-p))
}

func TanhSquash(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return floor
	}
	return diff/2*math.Tanh(2*slope*x/diff) + (ceil+floor)/2
}

func TanhDerivative(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return 0
	}
	t := math.Tanh(2 * slope * x / diff)
	return slope * (1 - t*t)
}

func TanhInverse(y, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 || slope == 0 {
		return 0
	}
	u := 2*openUnit((y-floor)/diff) - 1
	return diff / (2 * slope) * math.Atanh(u)
}

func ArctanSquash(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return floor
	}
	return diff/math.Pi*math.Atan(math.Pi*slope*x/diff) + (ceil+floor)/2
}

func ArctanDerivative(x, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 {
		return 0
	}
	a := math.Pi * slope * x / diff
	return slope / (1 + a*a)
}

func ArctanInverse(y, ceil, floor, slope float64) float64 {
	diff := ceil - floor
	if diff == 0 || slope == 0 {
		return 0
	}
	u := openUnit((y-floor)/diff) - 0.5
	return diff / (math.Pi * slope) * math.Tan(math.Pi*u)
}

const squashEpsilon = 1e-9

func openUnit(p float64) float64 {
	return Sat(p, 1-squashEpsilon, squashEpsilon)
}
