package variants

import (
	"testing"
	"time"

	"github.com/goliatone/go-variants/pkg/activity"
)

func TestCaptureIsStableAfterSourceUpdate(t *testing.T) {
	src := newMutableSource(map[string]any{
		"button_color": "#FF0000",
		"show_image":   true,
	})
	home := NewHomeGroup(NewResolver(src))

	snap := Capture(home, readHome)
	src.Set("button_color", "#00FF00")
	src.Delete("show_image")

	values := snap.Values()
	if values.ButtonColor.String() != "#FF0000" || !values.ShowImage {
		t.Fatalf("expected snapshot unchanged, got %+v", values)
	}
	if home.ButtonColor().String() != "#00FF00" {
		t.Fatalf("expected live group to see update")
	}
	if snap.Revision() != 1 || snap.Group() != "home" || snap.ID() == "" {
		t.Fatalf("unexpected snapshot metadata id=%q group=%q rev=%d", snap.ID(), snap.Group(), snap.Revision())
	}
}

func TestCaptureReadsOneState(t *testing.T) {
	src := newMutableSource(map[string]any{"hero_title": "v1", "show_image": false})
	home := NewHomeGroup(NewResolver(src))

	snap := Capture(home, func(g HomeGroup) homeView {
		title := g.HeroTitle()
		src.Set("show_image", true)
		return homeView{HeroTitle: title, ShowImage: g.ShowImage()}
	})

	if snap.Values().ShowImage {
		t.Fatalf("expected capture to ignore updates made while reading")
	}
}

func TestStickyCaptureReadsPinnedState(t *testing.T) {
	src := newMutableSource(map[string]any{"hero_title": "v1", "show_image": false})
	home := NewHomeGroup(NewResolver(src, WithSticky()))

	if got := home.HeroTitle(); got != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
	src.Set("hero_title", "v2")
	src.Set("show_image", true)

	snap := Capture(home, readHome)
	values := snap.Values()
	if snap.Revision() != 3 {
		t.Fatalf("expected revision 3, got %d", snap.Revision())
	}
	if values.HeroTitle != "v2" || !values.ShowImage {
		t.Fatalf("expected capture of revision 3 state, got %+v", values)
	}
	if got := home.HeroTitle(); got != "v1" {
		t.Fatalf("expected live sticky read to stay v1, got %q", got)
	}
}

func TestSnapshotValuesAreCopies(t *testing.T) {
	tags := Define("tags", []string{"a"})
	group := NewGroup("tags", NewResolver(Static(map[string]any{"tags": []any{"x", "y"}})))

	snap := Capture(group, func(g Group) []string { return tags.Get(g) })
	values := snap.Values()
	values[0] = "mutated"

	if got := snap.Values()[0]; got != "x" {
		t.Fatalf("expected snapshot values detached, got %q", got)
	}
}

func TestCaptureOptionsAndEvents(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	groupHook := &activity.CaptureHook{}
	captureHook := &activity.CaptureHook{}
	home := NewHomeGroup(NewResolver(Static(nil), WithActivityHooks(activity.Hooks{groupHook})))

	snap := Capture(home, readHome,
		WithSnapshotID("snap-1"),
		WithSnapshotClock(func() time.Time { return at }),
		WithSnapshotHooks(activity.Hooks{captureHook}),
	)
	if snap.ID() != "snap-1" || !snap.CapturedAt().Equal(at) {
		t.Fatalf("unexpected snapshot %s at %s", snap.ID(), snap.CapturedAt())
	}

	for name, hook := range map[string]*activity.CaptureHook{"group": groupHook, "capture": captureHook} {
		var found bool
		for _, event := range hook.Recorded() {
			if event.Verb == activity.VerbSnapshotCaptured {
				found = true
				if event.ObjectID != "snap-1" || event.SnapshotID != "snap-1" || event.Group != "home" {
					t.Fatalf("%s: unexpected snapshot event %+v", name, event)
				}
			}
		}
		if !found {
			t.Fatalf("%s: expected snapshot event", name)
		}
	}
}
