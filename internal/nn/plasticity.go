package nn

import (
	"fmt"
	"strings"
)

const (
	PlasticityNone    = "none"
	PlasticityHebbian = "hebbian"
	PlasticityOja     = "oja"
)

func NormalizePlasticityRuleName(rule string) string {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case "", PlasticityNone, "static":
		return PlasticityNone
	case PlasticityHebbian, "hebb":
		return PlasticityHebbian
	case PlasticityOja, "ojas":
		return PlasticityOja
	default:
		return strings.ToLower(strings.TrimSpace(rule))
	}
}

// NewSynapseRule resolves a plasticity rule name with the given rate.
func NewSynapseRule(name string, rate float64) (SynapseRule, error) {
	switch NormalizePlasticityRuleName(name) {
	case PlasticityNone:
		return StaticRule{}, nil
	case PlasticityHebbian:
		return HebbianRule{LearningRate: rate}, nil
	case PlasticityOja:
		return OjaRule{LearningRate: rate}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported plasticity rule: %s", ErrInvalidParameter, name)
	}
}

type StaticRule struct{}

func (StaticRule) Name() string { return PlasticityNone }

func (StaticRule) Delta(*Synapse) float64 { return 0 }

type HebbianRule struct {
	LearningRate float64
}

func (HebbianRule) Name() string { return PlasticityHebbian }

func (r HebbianRule) Delta(s *Synapse) float64 {
	return r.LearningRate * s.source.activation * s.target.activation
}

type OjaRule struct {
	LearningRate float64
}

func (OjaRule) Name() string { return PlasticityOja }

func (r OjaRule) Delta(s *Synapse) float64 {
	pre := s.source.activation
	post := s.target.activation
	return r.LearningRate * post * (pre - post*s.strength)
}
