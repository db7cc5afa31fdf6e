package nn

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrRuleExists   = errors.New("update rule already registered")
	ErrRuleNotFound = errors.New("update rule not found")
	ErrRuleVersion  = errors.New("update rule version mismatch")
)

// RuleFactory returns a fresh rule instance; rules carry mutable parameters
// so every neuron gets its own unless a caller shares one on purpose.
type RuleFactory func() UpdateRule

type RuleSpec struct {
	Name          string
	Factory       RuleFactory
	SchemaVersion int
	CodecVersion  int
}

type registeredRule struct {
	factory       RuleFactory
	schemaVersion int
	codecVersion  int
}

var ruleRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredRule
}{
	m: make(map[string]registeredRule),
}

func init() {
	initializeBuiltInRules()
}

func initializeBuiltInRules() {
	MustRegisterRule("linear", func() UpdateRule { return DefaultLinearRule() })
	MustRegisterRule("binary", func() UpdateRule { return &BinaryRule{} })
	MustRegisterRule("sigmoidal", func() UpdateRule { return DefaultSigmoidalRule() })
	MustRegisterRule("tanh", func() UpdateRule { return &SigmoidalRule{Kind: Tanh, Slope: 1} })
	MustRegisterRule("arctan", func() UpdateRule { return &SigmoidalRule{Kind: Arctan, Slope: 1} })
	MustRegisterRule("clamped", func() UpdateRule { return ClampedRule{} })
	MustRegisterRule("point", func() UpdateRule { return &PointRule{Gain: 100, Threshold: 0.5} })
}

func RegisterRule(name string, factory RuleFactory) error {
	return RegisterRuleWithSpec(RuleSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func MustRegisterRule(name string, factory RuleFactory) {
	if err := RegisterRule(name, factory); err != nil {
		panic(err)
	}
}

func RegisterRuleWithSpec(spec RuleSpec) error {
	if spec.Name == "" {
		return errors.New("update rule name is required")
	}
	if spec.Factory == nil {
		return errors.New("update rule factory is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrRuleVersion, spec.SchemaVersion, spec.CodecVersion)
	}

	ruleRegistry.mu.Lock()
	defer ruleRegistry.mu.Unlock()

	if _, exists := ruleRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, spec.Name)
	}

	ruleRegistry.m[spec.Name] = registeredRule{
		factory:       spec.Factory,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
	}
	return nil
}

// NewRule builds a fresh instance of the named rule.
func NewRule(name string) (UpdateRule, error) {
	ruleRegistry.mu.RLock()
	entry, ok := ruleRegistry.m[name]
	ruleRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, name)
	}
	if entry.schemaVersion != SupportedSchemaVersion || entry.codecVersion != SupportedCodecVersion {
		return nil, fmt.Errorf("%w: %s", ErrRuleVersion, name)
	}
	return entry.factory(), nil
}

func ListRules() []string {
	ruleRegistry.mu.RLock()
	defer ruleRegistry.mu.RUnlock()

	names := make([]string, 0, len(ruleRegistry.m))
	for name := range ruleRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRuleRegistryForTests() {
	ruleRegistry.mu.Lock()
	ruleRegistry.m = make(map[string]registeredRule)
	ruleRegistry.mu.Unlock()
	initializeBuiltInRules()
}
