package variants

import (
	"github.com/goliatone/go-variants/internal/clone"
)

// Var declares one variant: its key, its typed default and a description.
// Vars are declared once, next to the test group that exposes them, so a key
// or default change is a one-place edit.
type Var[T any] struct {
	key         Key
	def         T
	description string
}

// VarOption configures descriptive metadata on a Var.
type VarOption func(*varMeta)

type varMeta struct {
	description string
}

// WithDescription documents the variant for schemas and tooling.
func WithDescription(description string) VarOption {
	return func(meta *varMeta) {
		meta.description = description
	}
}

// Define declares a variant with key and default. The default is copied.
func Define[T any](key Key, def T, opts ...VarOption) Var[T] {
	meta := varMeta{}
	for _, opt := range opts {
		if opt != nil {
			opt(&meta)
		}
	}
	return Var[T]{key: key, def: clone.Value(def), description: meta.description}
}

// Key returns the variant key.
func (v Var[T]) Key() Key {
	return v.key
}

// Default returns a copy of the default value.
func (v Var[T]) Default() T {
	return clone.Value(v.def)
}

// Get resolves the variant through g.
func (v Var[T]) Get(g Group) T {
	return v.Detail(g).Value
}

// Detail resolves the variant through g, reporting how the value was chosen.
func (v Var[T]) Detail(g Group) Resolution[T] {
	return resolveIn(g.resolver, g.id, v.key, v.def)
}

// Resolve resolves the variant directly against r.
func (v Var[T]) Resolve(r *Resolver) T {
	return resolveIn(r, "", v.key, v.def).Value
}

// Descriptor describes the variant for catalogs and schemas.
func (v Var[T]) Descriptor() Descriptor {
	return Descriptor{
		Key:         v.key,
		Type:        typeLabel[T](),
		Default:     clone.Value(v.def),
		Description: v.description,
	}
}
