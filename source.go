package variants

import (
	"sort"

	"github.com/goliatone/go-variants/internal/clone"
)

// Source provides raw variant assignments. Implementations must be safe for
// concurrent use and must return a view that never changes after it is
// returned; updates publish a new view instead (copy-on-write).
type Source interface {
	Assignments() Assignments
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Assignments

// Assignments implements Source.
func (f SourceFunc) Assignments() Assignments {
	if f == nil {
		return Assignments{}
	}
	return f()
}

// Tracer is implemented by sources that can explain where a key's value came
// from, such as layered sources.
type Tracer interface {
	Trace(key Key) Trace
}

// Assignments is an immutable, point-in-time view of a Source. The zero value
// is an empty view at revision 0.
type Assignments struct {
	values   map[Key]any
	revision uint64
}

// NewAssignments copies values into a new immutable view tagged with revision.
func NewAssignments(values map[string]any, revision uint64) Assignments {
	if len(values) == 0 {
		return Assignments{revision: revision}
	}
	copied := make(map[Key]any, len(values))
	for key, value := range values {
		copied[Key(key)] = clone.Any(value)
	}
	return Assignments{values: copied, revision: revision}
}

// Lookup returns a copy of the raw value stored for key.
func (a Assignments) Lookup(key Key) (any, bool) {
	value, ok := a.values[key]
	if !ok {
		return nil, false
	}
	return clone.Any(value), true
}

// Has reports whether key has an assignment.
func (a Assignments) Has(key Key) bool {
	_, ok := a.values[key]
	return ok
}

// Revision identifies the source state the view was taken from. Sources bump
// it on every change.
func (a Assignments) Revision() uint64 {
	return a.revision
}

// Len returns the number of assigned keys.
func (a Assignments) Len() int {
	return len(a.values)
}

// Keys returns the assigned keys sorted alphabetically.
func (a Assignments) Keys() []Key {
	keys := make([]Key, 0, len(a.values))
	for key := range a.values {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Values returns a deep copy of the view as a plain map.
func (a Assignments) Values() map[string]any {
	out := make(map[string]any, len(a.values))
	for key, value := range a.values {
		out[string(key)] = clone.Any(value)
	}
	return out
}

// Static returns a Source that always serves the same assignments.
func Static(values map[string]any) Source {
	view := NewAssignments(values, 1)
	return SourceFunc(func() Assignments { return view })
}

// Fixed returns a Source that always serves view. Pinned resolvers use it.
func Fixed(view Assignments) Source {
	return SourceFunc(func() Assignments { return view })
}

// Variant resolves key against src, returning def when the key is missing or
// holds a value that cannot be read as T.
func Variant[T any](src Source, key Key, def T) T {
	if src == nil {
		return clone.Value(def)
	}
	value, _ := convertAssignment[T](src.Assignments(), key, def)
	return value
}
