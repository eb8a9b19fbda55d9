package variants

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-variants/internal/clone"
	"github.com/goliatone/go-variants/pkg/activity"
)

// Resolver performs typed lookups against a Source. Lookups never fail: any
// missing, mistyped or invalid assignment resolves to the caller's default.
// A Resolver is safe for concurrent use and is meant to be shared by every
// test group of a process (or session).
type Resolver struct {
	source  Source
	origin  Source
	cfg     resolverConfig
	emitter *activity.Emitter
	sticky  *stickyCache
	pinned  bool
}

// NewResolver wraps source. A nil source yields a resolver that always
// returns defaults.
func NewResolver(source Source, opts ...Option) *Resolver {
	cfg := applyOptions(opts)
	r := &Resolver{
		source:  source,
		origin:  source,
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.hooks, cfg.activity),
	}
	if cfg.sticky {
		r.sticky = &stickyCache{entries: map[Key]stickyEntry{}}
	}
	return r
}

// Resolve reads key as T, returning def on any failure.
func Resolve[T any](r *Resolver, key Key, def T) T {
	return resolveIn(r, "", key, def).Value
}

// ResolveDetail is Resolve with the reason and revision behind the value.
func ResolveDetail[T any](r *Resolver, key Key, def T) Resolution[T] {
	return resolveIn(r, "", key, def)
}

func resolveIn[T any](r *Resolver, group string, key Key, def T) Resolution[T] {
	if r == nil || r.source == nil {
		return fallback(key, def, ReasonNoSource, 0, ErrNoSource)
	}
	var res Resolution[T]
	if err := key.Validate(); err != nil {
		res = fallback(key, def, ReasonInvalidKey, 0, err)
	} else {
		raw, found, revision := r.lookup(key)
		res = decide(key, raw, found, def, revision)
	}
	r.record(group, res.Key, res.Reason, res.Revision, res.Value, res.Err)
	return res
}

// Pin returns a resolver bound to the source state visible right now. Every
// lookup through the pinned resolver observes that same state, which makes
// multi-key reads atomic with respect to source updates. A pinned resolver
// does not consult the sticky cache: the pinned state wins, so every value
// read through it belongs to the revision it reports.
func (r *Resolver) Pin() *Resolver {
	if r == nil {
		return nil
	}
	if r.pinned || r.source == nil {
		return r
	}
	return &Resolver{
		source:  Fixed(r.source.Assignments()),
		origin:  r.origin,
		cfg:     r.cfg,
		emitter: r.emitter,
		pinned:  true,
	}
}

// Pinned reports whether the resolver is bound to a single source state.
func (r *Resolver) Pinned() bool {
	return r != nil && r.pinned
}

// Revision returns the revision of the state the resolver currently reads.
func (r *Resolver) Revision() uint64 {
	if r == nil || r.source == nil {
		return 0
	}
	return r.source.Assignments().Revision()
}

// Trace explains where key's value comes from when the underlying source
// supports provenance.
func (r *Resolver) Trace(key Key) (Trace, bool) {
	if r == nil {
		return Trace{}, false
	}
	tracer, ok := r.origin.(Tracer)
	if !ok {
		return Trace{}, false
	}
	return tracer.Trace(key), true
}

func (r *Resolver) lookup(key Key) (any, bool, uint64) {
	if r.sticky != nil {
		return r.sticky.lookup(r.source, key)
	}
	view := r.source.Assignments()
	raw, found := view.Lookup(key)
	return raw, found, view.Revision()
}

func (r *Resolver) record(group string, key Key, reason Reason, revision uint64, value any, err error) {
	r.cfg.logger.LogResolution(ResolutionLogEvent{
		Group:    group,
		Key:      key,
		Reason:   reason,
		Revision: revision,
		Err:      err,
	})
	if !r.emitter.Enabled() {
		return
	}
	if !reason.Fallback() && !r.cfg.resolvedEvents {
		return
	}
	input := r.eventInput(group)
	input.Key = string(key)
	input.Reason = string(reason)
	input.Revision = revision
	input.Value = value
	var resErr *ResolutionError
	if errors.As(err, &resErr) {
		input.Metadata = map[string]any{
			activity.MetadataKeyExpected: resErr.Expected,
			activity.MetadataKeyActual:   resErr.Actual,
		}
	}
	event := activity.BuildResolvedEvent(input)
	if reason.Fallback() {
		event = activity.BuildFallbackEvent(input)
	}
	_ = r.emitter.Emit(context.Background(), event)
}

func (r *Resolver) eventInput(group string) activity.VariantEventInput {
	return activity.VariantEventInput{
		UserID:     r.cfg.unitID,
		TenantID:   r.cfg.tenantID,
		Group:      group,
		OccurredAt: r.cfg.clock(),
	}
}

func (r *Resolver) eventInputOrZero(group string) activity.VariantEventInput {
	if r == nil {
		return activity.VariantEventInput{Group: group}
	}
	return r.eventInput(group)
}

func (r *Resolver) emit(event activity.Event) {
	if r == nil || !r.emitter.Enabled() {
		return
	}
	_ = r.emitter.Emit(context.Background(), event)
}

type stickyEntry struct {
	raw      any
	found    bool
	revision uint64
}

type stickyCache struct {
	mu      sync.Mutex
	entries map[Key]stickyEntry
}

func (c *stickyCache) lookup(source Source, key Key) (any, bool, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		view := source.Assignments()
		raw, found := view.Lookup(key)
		entry = stickyEntry{raw: raw, found: found, revision: view.Revision()}
		c.entries[key] = entry
	}
	return clone.Any(entry.raw), entry.found, entry.revision
}
