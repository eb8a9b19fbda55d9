package variants

import (
	"errors"
	"fmt"
)

// ErrDuplicateKey indicates two variants of one group share a key.
var ErrDuplicateKey = errors.New("variants: duplicate key in group")

// Descriptor describes one declared variant.
type Descriptor struct {
	Key         Key    `json:"key"`
	Type        string `json:"type"`
	Default     any    `json:"default"`
	Description string `json:"description,omitempty"`
}

// Describer is implemented by Var.
type Describer interface {
	Descriptor() Descriptor
}

// Catalog is the closed set of variants a group exposes.
type Catalog struct {
	group       string
	descriptors []Descriptor
}

// NewCatalog validates that every key is present and unique within group.
func NewCatalog(group string, vars ...Describer) (Catalog, error) {
	seen := make(map[Key]struct{}, len(vars))
	descriptors := make([]Descriptor, 0, len(vars))
	for _, v := range vars {
		if v == nil {
			continue
		}
		d := v.Descriptor()
		if err := d.Key.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("variants: catalog %q: %w", group, err)
		}
		if _, ok := seen[d.Key]; ok {
			return Catalog{}, fmt.Errorf("%w: %s/%s", ErrDuplicateKey, group, d.Key)
		}
		seen[d.Key] = struct{}{}
		descriptors = append(descriptors, d)
	}
	return Catalog{group: group, descriptors: descriptors}, nil
}

// MustCatalog is NewCatalog that panics on error. It suits package-level
// declarations, where a duplicate key is a programming error.
func MustCatalog(group string, vars ...Describer) Catalog {
	catalog, err := NewCatalog(group, vars...)
	if err != nil {
		panic(err)
	}
	return catalog
}

// Group returns the group id the catalog belongs to.
func (c Catalog) Group() string {
	return c.group
}

// Descriptors returns the declared variants in declaration order.
func (c Catalog) Descriptors() []Descriptor {
	return append([]Descriptor(nil), c.descriptors...)
}

// Keys returns the declared keys in declaration order.
func (c Catalog) Keys() []Key {
	keys := make([]Key, len(c.descriptors))
	for i, d := range c.descriptors {
		keys[i] = d.Key
	}
	return keys
}

// Len returns the number of declared variants.
func (c Catalog) Len() int {
	return len(c.descriptors)
}

// Defaults returns the default of every declared variant keyed by name. It
// can seed a defaults layer in a layered source.
func (c Catalog) Defaults() map[string]any {
	out := make(map[string]any, len(c.descriptors))
	for _, d := range c.descriptors {
		out[string(d.Key)] = d.Default
	}
	return out
}
