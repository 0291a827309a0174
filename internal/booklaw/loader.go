package booklaw

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// RuleSpec is one declared rule in a booklaw YAML file.
type RuleSpec struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	AppliesTo []string       `yaml:"applies_to"`
	Params    map[string]any `yaml:"params"`
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// Parse decodes a rule file and builds its rules in declaration order.
func Parse(data []byte, reg *Registry) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal booklaw rules: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	for _, spec := range f.Rules {
		r, err := reg.Build(spec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// LoadFile reads rules from path. An empty path yields the embedded
// defaults.
func LoadFile(path string, reg *Registry) ([]Rule, error) {
	if path == "" {
		return DefaultRules(reg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read booklaw rules: %w", err)
	}
	return Parse(data, reg)
}

func DefaultRules(reg *Registry) ([]Rule, error) {
	return Parse(defaultRules, reg)
}
