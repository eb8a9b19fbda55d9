package variants

import (
	"context"
	"time"

	"github.com/goliatone/go-variants/internal/clone"
	"github.com/goliatone/go-variants/pkg/activity"
	"github.com/google/uuid"
)

// Pinner is implemented by test groups that can bind themselves to a single
// source state. Feature groups implement it by wrapping Group.Pin.
type Pinner[G any] interface {
	Pin() G
}

// Snapshot is an immutable capture of the variant values one consumer needs.
// Values are copied in and copied out, and never change after capture, even
// when the source is updated.
type Snapshot[S any] struct {
	id         string
	group      string
	revision   uint64
	capturedAt time.Time
	values     S
}

// CaptureOption configures snapshot capture.
type CaptureOption func(*captureConfig)

type captureConfig struct {
	clock func() time.Time
	id    string
	hooks activity.Hooks
}

// WithSnapshotClock overrides the capture timestamp source.
func WithSnapshotClock(clock func() time.Time) CaptureOption {
	return func(cfg *captureConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithSnapshotID sets an explicit snapshot id instead of a random UUID.
func WithSnapshotID(id string) CaptureOption {
	return func(cfg *captureConfig) {
		cfg.id = id
	}
}

// WithSnapshotHooks notifies hooks with a variant.snapshot.captured event.
func WithSnapshotHooks(hooks activity.Hooks) CaptureOption {
	normalized := hooks.Clone()
	return func(cfg *captureConfig) {
		cfg.hooks = normalized
	}
}

// Capture pins group to the current source state and reads the values the
// consumer needs through read. Because every read inside read observes the
// same pinned state, capture is atomic with respect to source updates.
func Capture[G Pinner[G], S any](group G, read func(G) S, opts ...CaptureOption) Snapshot[S] {
	cfg := captureConfig{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	pinned := group.Pin()
	var values S
	if read != nil {
		values = clone.Value(read(pinned))
	}

	snapshot := Snapshot[S]{
		id:         cfg.id,
		group:      groupID(pinned),
		revision:   groupRevision(pinned),
		capturedAt: cfg.clock(),
		values:     values,
	}
	if snapshot.id == "" {
		snapshot.id = uuid.NewString()
	}

	if observer, ok := any(pinned).(snapshotObserver); ok {
		observer.observeSnapshot(snapshot.id, snapshot.revision, snapshot.capturedAt)
	}
	if len(cfg.hooks) > 0 {
		_ = cfg.hooks.Notify(context.Background(), activity.BuildSnapshotCapturedEvent(activity.VariantEventInput{
			Group:      snapshot.group,
			Revision:   snapshot.revision,
			SnapshotID: snapshot.id,
			OccurredAt: snapshot.capturedAt,
		}))
	}
	return snapshot
}

// Values returns a copy of the captured values.
func (s Snapshot[S]) Values() S {
	return clone.Value(s.values)
}

// ID returns the snapshot identifier.
func (s Snapshot[S]) ID() string {
	return s.id
}

// Group returns the id of the group the snapshot was captured from.
func (s Snapshot[S]) Group() string {
	return s.group
}

// Revision returns the source revision the snapshot observed.
func (s Snapshot[S]) Revision() uint64 {
	return s.revision
}

// CapturedAt returns the capture time.
func (s Snapshot[S]) CapturedAt() time.Time {
	return s.capturedAt
}

// snapshotObserver is satisfied by Group and every feature group embedding it.
type snapshotObserver interface {
	observeSnapshot(id string, revision uint64, at time.Time)
}

func groupID(group any) string {
	if g, ok := group.(interface{ ID() string }); ok {
		return g.ID()
	}
	return ""
}

func groupRevision(group any) uint64 {
	if g, ok := group.(interface{ Revision() uint64 }); ok {
		return g.Revision()
	}
	return 0
}
