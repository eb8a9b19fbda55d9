package activity

import (
	"context"
	"strings"
	"sync"
)

// DefaultChannel is applied to events emitted without an explicit channel.
const DefaultChannel = "variants"

// Config controls activity emission defaults supplied by DI/config.
type Config struct {
	Enabled bool
	Channel string
	// Dedupe forwards a per-key event at most once per verb, unit, group,
	// key, reason and revision. Exposure counting usually wants this. Only
	// the newest revision is remembered per key, so memory stays bounded by
	// the number of keys a resolver serves and events for older revisions
	// are dropped.
	Dedupe bool
}

// Emitter fans out events to hooks while applying defaults.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	dedupe  bool

	mu   sync.Mutex
	seen map[string]uint64
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	cloned := hooks.Clone()
	return &Emitter{
		hooks:   cloned,
		enabled: cfg.Enabled && len(cloned) > 0,
		channel: channel,
		dedupe:  cfg.Dedupe,
	}
}

// Enabled reports whether emissions should be attempted.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Emit forwards the event to all hooks, applying the default channel when
// missing. Duplicates are dropped silently when Dedupe is set.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if e.dedupe && !e.first(event) {
		return nil
	}
	return e.hooks.Notify(ctx, event)
}

// first records event and reports whether it has not been forwarded before.
// Events that are not about a single key always pass.
func (e *Emitter) first(event Event) bool {
	if event.Key == "" {
		return true
	}
	id := dedupeKey(event)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen == nil {
		e.seen = map[string]uint64{}
	}
	if last, ok := e.seen[id]; ok && event.Revision <= last {
		return false
	}
	e.seen[id] = event.Revision
	return true
}

func dedupeKey(event Event) string {
	return strings.Join([]string{
		event.Verb,
		event.UserID,
		event.TenantID,
		event.Group,
		event.Key,
		event.Reason,
	}, "\x00")
}
