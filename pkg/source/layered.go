package source

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	variants "github.com/goliatone/go-variants"
	"github.com/goliatone/go-variants/internal/clone"
)

// ErrNilLayerSource indicates a layer without a source.
var ErrNilLayerSource = errors.New("source: layer source must not be nil")

// Layer pairs a scope with the source that holds its assignments.
type Layer struct {
	Scope      variants.Scope
	Source     variants.Source
	SnapshotID string
}

// NewLayer builds a Layer. The optional snapshot id flows into traces.
func NewLayer(scope variants.Scope, src variants.Source, snapshotID ...string) Layer {
	layer := Layer{Scope: scope.Clone(), Source: src}
	if len(snapshotID) > 0 {
		layer.SnapshotID = snapshotID[0]
	}
	return layer
}

// LayeredOption configures a Layered source.
type LayeredOption func(*Layered)

// WithDeepMerge merges nested object values key by key across layers instead
// of letting the strongest layer replace the whole object.
func WithDeepMerge() LayeredOption {
	return func(l *Layered) {
		l.deep = true
	}
}

// Layered resolves each key from the strongest scope that assigns it. A nil
// value does not count as an assignment, so it never hides a weaker layer. Its
// revision is the sum of its layers' revisions, so any layer update yields a
// new revision.
type Layered struct {
	layers []Layer
	deep   bool

	mu     sync.Mutex
	cached *variants.Assignments
	revs   []uint64
}

// NewLayered orders layers strongest first. Scope names must be unique and
// priorities distinct.
func NewLayered(layers []Layer, opts ...LayeredOption) (*Layered, error) {
	scopes := make([]variants.Scope, len(layers))
	for i, layer := range layers {
		if layer.Source == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilLayerSource, layer.Scope.Name)
		}
		scopes[i] = layer.Scope
	}
	order, err := variants.OrderScopes(scopes)
	if err != nil {
		return nil, err
	}

	l := &Layered{layers: make([]Layer, len(layers))}
	for i, idx := range order {
		l.layers[i] = layers[idx]
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Layers returns the layers ordered strongest first.
func (l *Layered) Layers() []Layer {
	out := make([]Layer, len(l.layers))
	for i, layer := range l.layers {
		out[i] = layer
		out[i].Scope = layer.Scope.Clone()
	}
	return out
}

// Assignments implements variants.Source. The merged view is rebuilt only
// when a layer revision changes.
func (l *Layered) Assignments() variants.Assignments {
	views := make([]variants.Assignments, len(l.layers))
	revs := make([]uint64, len(l.layers))
	var total uint64
	for i, layer := range l.layers {
		views[i] = layer.Source.Assignments()
		revs[i] = views[i].Revision()
		total += revs[i]
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil && slices.Equal(l.revs, revs) {
		return *l.cached
	}

	merged := map[string]any{}
	for i := len(views) - 1; i >= 0; i-- {
		for key, value := range views[i].Values() {
			if value == nil {
				continue
			}
			if l.deep {
				merged[key] = mergeValue(value, merged[key])
				continue
			}
			merged[key] = value
		}
	}
	view := variants.NewAssignments(merged, total)
	l.cached = &view
	l.revs = revs
	return view
}

// Trace implements variants.Tracer. A layer holding nil for key does not
// assign it and is reported as not found.
func (l *Layered) Trace(key variants.Key) variants.Trace {
	trace := variants.Trace{Key: key, Layers: make([]variants.Provenance, 0, len(l.layers))}
	for _, layer := range l.layers {
		value, found := layer.Source.Assignments().Lookup(key)
		trace.Layers = append(trace.Layers, variants.Provenance{
			Scope:      layer.Scope.Clone(),
			SnapshotID: layer.SnapshotID,
			Value:      value,
			Found:      found && value != nil,
		})
	}
	return trace
}

// mergeValue keeps strong values and fills missing nested keys from weak.
// A nil strong value falls through to weak.
func mergeValue(strong, weak any) any {
	if strong == nil {
		return weak
	}
	strongMap, ok := strong.(map[string]any)
	if !ok {
		return strong
	}
	weakMap, ok := weak.(map[string]any)
	if !ok {
		return strong
	}
	out := clone.Map(weakMap)
	for key, value := range strongMap {
		out[key] = mergeValue(value, out[key])
	}
	return out
}
