package rules

import (
	"fmt"
	"os"
	"strings"

	variants "github.com/goliatone/go-variants"
	"gopkg.in/yaml.v3"
)

// Rule computes the value of one variant key.
type Rule struct {
	Key         string `json:"key" yaml:"key"`
	Expr        string `json:"expr" yaml:"expr"`
	Engine      string `json:"engine,omitempty" yaml:"engine,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Validate checks the rule is complete.
func (r Rule) Validate() error {
	if err := variants.Key(r.Key).Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	if strings.TrimSpace(r.Expr) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyExpression, r.Key)
	}
	return nil
}

// Document is the on-disk rules format.
type Document struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// ParseRules decodes a YAML or JSON rules document.
func ParseRules(payload []byte) ([]Rule, error) {
	var doc Document
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Rules))
	for _, rule := range doc.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[rule.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Key)
		}
		seen[rule.Key] = struct{}{}
	}
	return doc.Rules, nil
}

// LoadRules reads a rules document from path.
func LoadRules(path string) ([]Rule, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return ParseRules(payload)
}
