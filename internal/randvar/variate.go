// Package randvar draws bounded, polarity-aware random values from a small
// set of parametrized distributions.
package randvar

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidConfig = errors.New("invalid random variate config")

type Kind int

const (
	Uniform Kind = iota
	Normal
	LogNormal
	Pareto
	Exponential
	Gamma
	TwoValued
)

var kindNames = map[Kind]string{
	Uniform:     "uniform",
	Normal:      "normal",
	LogNormal:   "lognormal",
	Pareto:      "pareto",
	Exponential: "exponential",
	Gamma:       "gamma",
	TwoValued:   "two_valued",
}

// Kinds lists every supported distribution in declaration order.
func Kinds() []Kind {
	return []Kind{Uniform, Normal, LogNormal, Pareto, Exponential, Gamma, TwoValued}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(name string) (Kind, error) {
	normalized := strings.TrimSpace(strings.ToLower(name))
	for kind, candidate := range kindNames {
		if candidate == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown distribution %q", ErrInvalidConfig, name)
}

type Polarity int

const (
	Both Polarity = iota
	Excitatory
	Inhibitory
)

func (p Polarity) String() string {
	switch p {
	case Excitatory:
		return "excitatory"
	case Inhibitory:
		return "inhibitory"
	default:
		return "both"
	}
}

// Config parametrizes a variate. Param1 and Param2 are read per kind:
//
//	uniform      floor, ceiling
//	normal       mean, standard deviation
//	lognormal    location, scale
//	pareto       slope (shape), minimum (scale)
//	exponential  rate, unused
//	gamma        shape, scale
//	two_valued   lower value, upper value
type Config struct {
	Kind        Kind     `json:"kind"`
	Param1      float64  `json:"param1"`
	Param2      float64  `json:"param2"`
	Probability float64  `json:"probability,omitempty"`
	Clipping    bool     `json:"clipping,omitempty"`
	Lower       float64  `json:"lower,omitempty"`
	Upper       float64  `json:"upper,omitempty"`
	Polarity    Polarity `json:"polarity,omitempty"`
}

// DefaultConfig returns the stock parameters for kind.
func DefaultConfig(kind Kind) Config {
	cfg := Config{Kind: kind, Lower: -1, Upper: 1}
	switch kind {
	case Uniform:
		cfg.Param1, cfg.Param2 = 0, 1
	case Normal:
		cfg.Param1, cfg.Param2 = 1, 0.5
	case LogNormal:
		cfg.Param1, cfg.Param2 = 1, 0.5
	case Pareto:
		cfg.Param1, cfg.Param2 = 2, 1
	case Exponential:
		cfg.Param1 = 1
	case Gamma:
		cfg.Param1, cfg.Param2 = 2, 1
	case TwoValued:
		cfg.Param1, cfg.Param2 = -1, 1
		cfg.Probability = 0.5
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Kind {
	case Uniform:
		if c.Param1 > c.Param2 {
			return fmt.Errorf("%w: uniform floor %f above ceiling %f", ErrInvalidConfig, c.Param1, c.Param2)
		}
	case Normal, LogNormal:
		if c.Param2 < 0 {
			return fmt.Errorf("%w: %s scale must be >= 0", ErrInvalidConfig, c.Kind)
		}
	case Pareto:
		if c.Param1 <= 0 || c.Param2 <= 0 {
			return fmt.Errorf("%w: pareto slope and minimum must be > 0", ErrInvalidConfig)
		}
	case Exponential:
		if c.Param1 <= 0 {
			return fmt.Errorf("%w: exponential rate must be > 0", ErrInvalidConfig)
		}
	case Gamma:
		if c.Param1 <= 0 || c.Param2 <= 0 {
			return fmt.Errorf("%w: gamma shape and scale must be > 0", ErrInvalidConfig)
		}
	case TwoValued:
		if c.Probability < 0 || c.Probability > 1 {
			return fmt.Errorf("%w: two-valued probability must be in [0,1]", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidConfig, int(c.Kind))
	}
	if c.Clipping && c.Lower > c.Upper {
		return fmt.Errorf("%w: lower bound %f above upper bound %f", ErrInvalidConfig, c.Lower, c.Upper)
	}
	switch c.Polarity {
	case Both, Excitatory, Inhibitory:
	default:
		return fmt.Errorf("%w: unknown polarity %d", ErrInvalidConfig, int(c.Polarity))
	}
	return nil
}

// Variate is safe for use by one goroutine at a time; the underlying stream
// belongs to whoever passed it in.
type Variate struct {
	cfg    Config
	rng    *rand.Rand
	sample func() float64
}

func New(cfg Config, rng *rand.Rand) (*Variate, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: rng is required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	v := &Variate{cfg: cfg, rng: rng}
	v.sample = newSampler(cfg, rng)
	return v, nil
}

// MustNew is New for configs known to be valid at compile time.
func MustNew(cfg Config, rng *rand.Rand) *Variate {
	v, err := New(cfg, rng)
	if err != nil {
		panic(err)
	}
	return v
}

func newSampler(cfg Config, rng *rand.Rand) func() float64 {
	switch cfg.Kind {
	case Uniform:
		if cfg.Param1 == cfg.Param2 {
			return func() float64 { return cfg.Param1 }
		}
		return distuv.Uniform{Min: cfg.Param1, Max: cfg.Param2, Src: rng}.Rand
	case Normal:
		return distuv.Normal{Mu: cfg.Param1, Sigma: cfg.Param2, Src: rng}.Rand
	case LogNormal:
		return distuv.LogNormal{Mu: cfg.Param1, Sigma: cfg.Param2, Src: rng}.Rand
	case Pareto:
		return distuv.Pareto{Xm: cfg.Param2, Alpha: cfg.Param1, Src: rng}.Rand
	case Exponential:
		return distuv.Exponential{Rate: cfg.Param1, Src: rng}.Rand
	case Gamma:
		return distuv.Gamma{Alpha: cfg.Param1, Beta: 1 / cfg.Param2, Src: rng}.Rand
	default:
		return func() float64 {
			if rng.Float64() < cfg.Probability {
				return cfg.Param2
			}
			return cfg.Param1
		}
	}
}

func (v *Variate) Config() Config {
	return v.cfg
}

// Draw samples once, applies polarity and then clipping.
func (v *Variate) Draw() float64 {
	value := v.sample()
	switch v.cfg.Polarity {
	case Excitatory:
		value = math.Abs(value)
	case Inhibitory:
		value = -math.Abs(value)
	}
	if v.cfg.Clipping {
		value = clip(value, v.cfg.Lower, v.cfg.Upper)
	}
	return value
}

func (v *Variate) DrawN(n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = v.Draw()
	}
	return out
}

// WithPolarity returns a variate sharing the same stream with a different
// polarity.
func (v *Variate) WithPolarity(p Polarity) *Variate {
	cfg := v.cfg
	cfg.Polarity = p
	return &Variate{cfg: cfg, rng: v.rng, sample: v.sample}
}

func clip(value, lower, upper float64) float64 {
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}
