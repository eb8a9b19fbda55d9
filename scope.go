package variants

import (
	"errors"
	"fmt"
	"sort"
)

// Recommended priorities for layered variant sources. Higher numbers win.
const (
	ScopePriorityDefaults = 100
	ScopePriorityRemote   = 200
	ScopePriorityCohort   = 300
	ScopePriorityUser     = 400
	ScopePriorityOverride = 500
)

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates multiple layers share a scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates duplicate priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Scope models a named precedence bucket (defaults, remote, cohort, user,
// override). Higher priority values represent stronger layers.
type Scope struct {
	Name     string         `json:"name"`
	Label    string         `json:"label,omitempty"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScopeOption configures metadata on Scope creation.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	label    string
	metadata map[string]any
}

// WithScopeLabel sets a human-friendly label on the scope.
func WithScopeLabel(label string) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.label = label
	}
}

// WithScopeMetadata attaches metadata to the scope. The map is copied so the
// resulting Scope stays immutable even if the caller mutates their reference.
func WithScopeMetadata(metadata map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		if len(metadata) == 0 {
			return
		}
		cfg.metadata = copyMetadata(metadata)
	}
}

// NewScope builds a Scope. Validation is deferred to OrderScopes so callers can
// assemble scopes before deciding precedence.
func NewScope(name string, priority int, opts ...ScopeOption) Scope {
	cfg := scopeConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return Scope{
		Name:     name,
		Label:    cfg.label,
		Priority: priority,
		Metadata: copyMetadata(cfg.metadata),
	}
}

// Clone returns a copy of s with detached metadata.
func (s Scope) Clone() Scope {
	return Scope{
		Name:     s.Name,
		Label:    s.Label,
		Priority: s.Priority,
		Metadata: copyMetadata(s.Metadata),
	}
}

// IsZero reports whether s carries no information.
func (s Scope) IsZero() bool {
	return s.Name == "" && s.Label == "" && s.Priority == 0 && len(s.Metadata) == 0
}

// OrderScopes validates scopes and returns the indexes of scopes sorted from
// strongest to weakest. Names must be present and unique, priorities distinct.
func OrderScopes(scopes []Scope) ([]int, error) {
	seen := make(map[string]struct{}, len(scopes))
	order := make([]int, len(scopes))
	for i, scope := range scopes {
		if scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, scope.Name)
		}
		seen[scope.Name] = struct{}{}
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := scopes[order[i]], scopes[order[j]]
		if a.Priority == b.Priority {
			return a.Name < b.Name
		}
		return a.Priority > b.Priority
	})

	for i := 1; i < len(order); i++ {
		if scopes[order[i-1]].Priority <= scopes[order[i]].Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, scopes[order[i]].Priority)
		}
	}
	return order, nil
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for key, value := range origin {
		out[key] = value
	}
	return out
}
