package variants

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-variants/pkg/activity"
)

var (
	// ErrGroupIDRequired indicates an empty group id.
	ErrGroupIDRequired = errors.New("variants: group id must not be empty")
	// ErrUnknownGroup indicates a lookup for a group that was never
	// registered. It signals a wiring mistake, not an experiment problem.
	ErrUnknownGroup = errors.New("variants: unknown group")
	// ErrDuplicateGroup indicates a second registration for the same id.
	ErrDuplicateGroup = errors.New("variants: group already registered")
	// ErrGroupType indicates a lookup with a type the group was not built as.
	ErrGroupType = errors.New("variants: group has a different type")
	// ErrNilFactory indicates a registration without a build function.
	ErrNilFactory = errors.New("variants: group factory must not be nil")
)

// Registry lazily builds and caches one test group per feature id. Every
// group is built at most once, on first access, even under concurrent first
// access; callers arriving during construction wait for the single instance.
type Registry struct {
	resolver *Resolver

	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	id         string
	build      func(*Resolver) any
	catalog    Catalog
	hasCatalog bool

	once     sync.Once
	built    atomic.Bool
	instance any
	err      error
}

// Entry describes a registration for diagnostics.
type Entry struct {
	ID          string
	Constructed bool
	Catalog     Catalog
	HasCatalog  bool
}

// RegisterOption configures a registration.
type RegisterOption func(*registryEntry)

// WithCatalog attaches the group's variant catalog for schema and tooling.
func WithCatalog(catalog Catalog) RegisterOption {
	return func(entry *registryEntry) {
		entry.catalog = catalog
		entry.hasCatalog = true
	}
}

// NewRegistry creates an empty registry whose groups share r.
func NewRegistry(r *Resolver) *Registry {
	return &Registry{
		resolver: r,
		entries:  map[string]*registryEntry{},
	}
}

// Register adds a group factory under id. The factory runs lazily, once.
func Register[G any](reg *Registry, id string, build func(*Resolver) G, opts ...RegisterOption) error {
	if build == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, id)
	}
	return reg.register(id, func(r *Resolver) any { return build(r) }, opts)
}

func (reg *Registry) register(id string, build func(*Resolver) any, opts []RegisterOption) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrGroupIDRequired
	}
	entry := &registryEntry{id: id, build: build}
	for _, opt := range opts {
		if opt != nil {
			opt(entry)
		}
	}
	if entry.hasCatalog && entry.catalog.Group() != "" && entry.catalog.Group() != id {
		return fmt.Errorf("variants: catalog for %q registered under %q", entry.catalog.Group(), id)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, id)
	}
	reg.entries[id] = entry
	return nil
}

// Get returns the group registered under id, building it on first access.
func (reg *Registry) Get(id string) (any, error) {
	reg.mu.RLock()
	entry, ok := reg.entries[strings.TrimSpace(id)]
	reg.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, id)
	}
	entry.once.Do(func() {
		reg.construct(entry)
	})
	return entry.instance, entry.err
}

func (reg *Registry) construct(entry *registryEntry) {
	defer entry.built.Store(true)
	defer func() {
		if p := recover(); p != nil {
			entry.err = fmt.Errorf("variants: building group %q panicked: %v", entry.id, p)
		}
	}()
	entry.instance = entry.build(reg.resolver)

	input := reg.resolver.eventInputOrZero(entry.id)
	input.Revision = reg.resolver.Revision()
	if entry.hasCatalog {
		input.Metadata = map[string]any{activity.MetadataKeyKeyCount: entry.catalog.Len()}
	}
	reg.resolver.emit(activity.BuildGroupConstructedEvent(input))
}

// Lookup returns the group registered under id as G.
func Lookup[G any](reg *Registry, id string) (G, error) {
	var zero G
	instance, err := reg.Get(id)
	if err != nil {
		return zero, err
	}
	group, ok := instance.(G)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T, not %s", ErrGroupType, id, instance, typeLabel[G]())
	}
	return group, nil
}

// MustLookup is Lookup that panics. Unknown groups and type mismatches are
// wiring errors that should stop the process at startup.
func MustLookup[G any](reg *Registry, id string) G {
	group, err := Lookup[G](reg, id)
	if err != nil {
		panic(err)
	}
	return group
}

// Warm builds the given groups, or every registered group when ids is empty,
// so wiring errors surface at startup instead of on first use.
func (reg *Registry) Warm(ids ...string) error {
	if len(ids) == 0 {
		ids = reg.ids()
	}
	var errs []error
	for _, id := range ids {
		if _, err := reg.Get(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Entries lists registrations sorted by id.
func (reg *Registry) Entries() []Entry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Entry, 0, len(reg.entries))
	for _, entry := range reg.entries {
		out = append(out, Entry{
			ID:          entry.id,
			Constructed: entry.built.Load(),
			Catalog:     entry.catalog,
			HasCatalog:  entry.hasCatalog,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Catalogs returns the catalogs attached to registrations, sorted by group.
func (reg *Registry) Catalogs() []Catalog {
	var catalogs []Catalog
	for _, entry := range reg.Entries() {
		if entry.HasCatalog {
			catalogs = append(catalogs, entry.Catalog)
		}
	}
	return catalogs
}

func (reg *Registry) ids() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]string, 0, len(reg.entries))
	for id := range reg.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
