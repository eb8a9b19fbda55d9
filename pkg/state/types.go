package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	variants "github.com/goliatone/go-variants"
	"github.com/goliatone/go-variants/internal/clone"
	"github.com/goliatone/go-variants/pkg/source"
)

var (
	// ErrETagMismatch indicates the stored overrides changed since they were read.
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrNoLayers indicates none of the requested scopes has stored overrides.
	ErrNoLayers = errors.New("state: no layers found")
	// ErrUnknownKey indicates an override for a key no catalog declares.
	ErrUnknownKey = errors.New("state: unknown variant key")
)

// DefaultsScopeName is reserved for the defaults layer added by LoadWithDefaults.
const DefaultsScopeName = "defaults"

// Overrides holds the variant assignments stored for one scope.
type Overrides map[string]any

// Clone returns a deep copy.
func (o Overrides) Clone() Overrides {
	if o == nil {
		return nil
	}
	return Overrides(clone.Map(o))
}

// Ref identifies the overrides of one domain for one scope.
type Ref struct {
	Domain string
	Scope  variants.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the overrides of a single Ref. Save receives the ETag the
// caller last read in meta.ETag and must reject the write with
// ErrETagMismatch when the stored ETag differs.
type Store interface {
	Load(ctx context.Context, ref Ref) (overrides Overrides, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, overrides Overrides, meta Meta) (Meta, error)
}

// Mutator edits overrides in place.
type Mutator func(Overrides) error

// Identifier returns the canonical storage key of the ref.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	switch r.Scope.Name {
	case "global", "remote", "override":
		return fmt.Sprintf("%s/%s", r.Scope.Name, r.Domain), nil
	case "tenant", "cohort", "user", "device":
		metadataKey := r.Scope.Name + "_id"
		id, ok := r.Scope.Metadata[metadataKey]
		if !ok {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		idString, ok := id.(string)
		if !ok || idString == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, idString, r.Domain), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

// Loader orchestrates scoped loads and stacks them into a layered source.
type Loader struct {
	Store Store
	// Validate checks overrides before Mutate saves them.
	Validate func(Overrides) error
	// Clock stamps Meta.UpdatedAt; time.Now when nil.
	Clock func() time.Time
}

// Load stacks the stored overrides of scopes for domain. Scopes without
// stored overrides are skipped.
func (l Loader) Load(ctx context.Context, domain string, scopes ...variants.Scope) (*source.Layered, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}
	if len(scopes) == 0 {
		return nil, fmt.Errorf("state: at least one scope is required")
	}

	layers, err := l.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: domain %q", ErrNoLayers, domain)
	}
	layered, err := source.NewLayered(layers)
	if err != nil {
		return nil, fmt.Errorf("state: layers: %w", err)
	}
	return layered, nil
}

// LoadWithDefaults is Load with a weakest defaults layer, typically
// Catalog.Defaults(). The result is never empty.
func (l Loader) LoadWithDefaults(ctx context.Context, domain string, defaults map[string]any, scopes ...variants.Scope) (*source.Layered, error) {
	if l.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	if domain == "" {
		return nil, fmt.Errorf("state: domain is required")
	}

	prioritySet := make(map[int]struct{}, len(scopes)+1)
	minPriority := 0
	if len(scopes) > 0 {
		minPriority = scopes[0].Priority
	}
	for _, scope := range scopes {
		if scope.Name == DefaultsScopeName {
			return nil, fmt.Errorf("state: scope name %q is reserved", DefaultsScopeName)
		}
		prioritySet[scope.Priority] = struct{}{}
		if scope.Priority < minPriority {
			minPriority = scope.Priority
		}
	}

	defaultsPriority := variants.ScopePriorityDefaults
	if len(scopes) > 0 && minPriority <= defaultsPriority {
		defaultsPriority = minPriority - 1
		for {
			if _, ok := prioritySet[defaultsPriority]; !ok {
				break
			}
			defaultsPriority--
		}
	}

	layers, err := l.loadLayers(ctx, domain, scopes)
	if err != nil {
		return nil, err
	}
	defaultsScope := variants.NewScope(DefaultsScopeName, defaultsPriority, variants.WithScopeLabel("Defaults"))
	layers = append(layers, source.NewLayer(defaultsScope, variants.Static(defaults)))

	layered, err := source.NewLayered(layers)
	if err != nil {
		return nil, fmt.Errorf("state: layers: %w", err)
	}
	return layered, nil
}

func (l Loader) loadLayers(ctx context.Context, domain string, scopes []variants.Scope) ([]source.Layer, error) {
	layers := make([]source.Layer, 0, len(scopes)+1)
	for _, scope := range scopes {
		overrides, meta, ok, err := l.Store.Load(ctx, Ref{Domain: domain, Scope: scope})
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", domain, scope.Name, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, source.NewLayer(scope, variants.Static(overrides), meta.SnapshotID))
	}
	return layers, nil
}

// Mutate loads the overrides for ref, applies fn to a copy, validates and
// saves them. meta.ETag, when set, must match the stored ETag.
func (l Loader) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (Overrides, Meta, error) {
	if l.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if ref.Domain == "" {
		return nil, Meta{}, fmt.Errorf("state: domain is required")
	}
	if ref.Scope.Name == "" {
		return nil, Meta{}, fmt.Errorf("state: scope name is required")
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	overrides, loadedMeta, ok, err := l.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	if !ok {
		overrides = Overrides{}
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	working := overrides.Clone()
	if working == nil {
		working = Overrides{}
	}
	if err := fn(working); err != nil {
		return nil, loadedMeta, err
	}
	for key := range working {
		if err := variants.Key(key).Validate(); err != nil {
			return nil, loadedMeta, fmt.Errorf("state: %w", err)
		}
	}
	if l.Validate != nil {
		if err := l.Validate(working); err != nil {
			return nil, loadedMeta, err
		}
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	saveMeta.UpdatedAt = l.now()
	savedMeta, err := l.Store.Save(ctx, ref, working, saveMeta)
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope.Name, err)
	}
	return working, savedMeta, nil
}

func (l Loader) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// CatalogValidator rejects overrides for keys none of catalogs declares.
func CatalogValidator(catalogs ...variants.Catalog) func(Overrides) error {
	known := map[string]struct{}{}
	for _, catalog := range catalogs {
		for _, key := range catalog.Keys() {
			known[string(key)] = struct{}{}
		}
	}
	return func(overrides Overrides) error {
		var unknown []string
		for key := range overrides {
			if _, ok := known[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) == 0 {
			return nil
		}
		sort.Strings(unknown)
		return fmt.Errorf("%w: %v", ErrUnknownKey, unknown)
	}
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
