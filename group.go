package variants

import (
	"time"

	"github.com/goliatone/go-variants/pkg/activity"
)

// Group is the base of a per-feature test group. Feature groups embed it and
// expose one typed method per variant:
//
//	type HomeGroup struct{ variants.Group }
//
//	func (g HomeGroup) ButtonColor() variants.Color { return buttonColor.Get(g.Group) }
//	func (g HomeGroup) Pin() HomeGroup               { return HomeGroup{g.Group.Pin()} }
//
// Group keeps its resolver private: consumers only see the typed accessors.
type Group struct {
	id       string
	resolver *Resolver
}

// NewGroup binds a group id to a shared resolver.
func NewGroup(id string, r *Resolver) Group {
	return Group{id: id, resolver: r}
}

// ID returns the group identifier.
func (g Group) ID() string {
	return g.id
}

// Revision returns the source revision the group currently reads.
func (g Group) Revision() uint64 {
	return g.resolver.Revision()
}

// Pin returns a copy of the group bound to the current source state.
func (g Group) Pin() Group {
	return Group{id: g.id, resolver: g.resolver.Pin()}
}

// Pinned reports whether the group reads from a fixed source state.
func (g Group) Pinned() bool {
	return g.resolver.Pinned()
}

func (g Group) observeSnapshot(id string, revision uint64, at time.Time) {
	if g.resolver == nil {
		return
	}
	input := g.resolver.eventInput(g.id)
	input.SnapshotID = id
	input.Revision = revision
	input.OccurredAt = at
	g.resolver.emit(activity.BuildSnapshotCapturedEvent(input))
}
