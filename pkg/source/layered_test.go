package source

import (
	"errors"
	"testing"

	variants "github.com/goliatone/go-variants"
)

func newTestLayered(t *testing.T, opts ...LayeredOption) (*Layered, *Memory, *Memory) {
	t.Helper()
	defaults := NewMemory(map[string]any{
		"title":  "Default",
		"limit":  10,
		"banner": map[string]any{"title": "Base", "color": "#0000FF"},
	})
	user := NewMemory(map[string]any{
		"title":  "User",
		"banner": map[string]any{"title": "Mine"},
	})
	layered, err := NewLayered([]Layer{
		NewLayer(variants.NewScope("defaults", variants.ScopePriorityDefaults), defaults),
		NewLayer(variants.NewScope("user", variants.ScopePriorityUser), user, "snap-user"),
	}, opts...)
	if err != nil {
		t.Fatalf("layered: %v", err)
	}
	return layered, defaults, user
}

func TestLayeredStrongestScopeWins(t *testing.T) {
	layered, _, _ := newTestLayered(t)
	r := variants.NewResolver(layered)

	if got := variants.Resolve(r, "title", ""); got != "User" {
		t.Fatalf("expected user title, got %q", got)
	}
	if got := variants.Resolve(r, "limit", 0); got != 10 {
		t.Fatalf("expected default limit, got %d", got)
	}
	banner := variants.Resolve(r, "banner", map[string]string{})
	if banner["title"] != "Mine" || banner["color"] != "" {
		t.Fatalf("expected strongest object to replace weaker, got %v", banner)
	}

	layers := layered.Layers()
	if layers[0].Scope.Name != "user" || layers[1].Scope.Name != "defaults" {
		t.Fatalf("expected strongest first, got %s,%s", layers[0].Scope.Name, layers[1].Scope.Name)
	}
}

func TestLayeredDeepMerge(t *testing.T) {
	layered, _, _ := newTestLayered(t, WithDeepMerge())
	banner := variants.Variant(layered, "banner", map[string]string{})
	if banner["title"] != "Mine" || banner["color"] != "#0000FF" {
		t.Fatalf("expected merged banner, got %v", banner)
	}
}

func TestLayeredRevisionTracksLayers(t *testing.T) {
	layered, defaults, user := newTestLayered(t)
	first := layered.Assignments()
	if first.Revision() != 2 {
		t.Fatalf("expected revision 2, got %d", first.Revision())
	}
	if again := layered.Assignments(); again.Revision() != first.Revision() {
		t.Fatalf("expected stable revision without updates")
	}

	user.Delete("title")
	defaults.Set("limit", 20)
	view := layered.Assignments()
	if view.Revision() != 4 {
		t.Fatalf("expected revision 4, got %d", view.Revision())
	}
	if got, _ := view.Lookup("title"); got != "Default" {
		t.Fatalf("expected default title after user delete, got %v", got)
	}
	if got, _ := first.Lookup("title"); got != "User" {
		t.Fatalf("expected earlier view unchanged, got %v", got)
	}
}

func TestLayeredTrace(t *testing.T) {
	layered, _, _ := newTestLayered(t)
	r := variants.NewResolver(layered)

	trace, ok := r.Trace("limit")
	if !ok {
		t.Fatalf("expected layered source to trace")
	}
	if len(trace.Layers) != 2 || trace.Layers[0].Found || !trace.Layers[1].Found {
		t.Fatalf("unexpected trace %+v", trace)
	}
	winner, ok := trace.Winner()
	if !ok || winner.Scope.Name != "defaults" || winner.Value != 10 {
		t.Fatalf("unexpected winner %+v", winner)
	}

	title, _ := r.Trace("title")
	if title.Layers[0].SnapshotID != "snap-user" {
		t.Fatalf("expected snapshot id on user layer, got %+v", title.Layers[0])
	}
}

func TestLayeredNilDoesNotHideWeakerLayer(t *testing.T) {
	global := NewMemory(map[string]any{
		"home_button_color": "#FF0000",
		"banner":            map[string]any{"title": "Base", "color": "#0000FF"},
	})
	user := NewMemory(map[string]any{
		"home_button_color": nil,
		"banner":            map[string]any{"title": "Mine", "color": nil},
	})
	layered, err := NewLayered([]Layer{
		NewLayer(variants.NewScope("global", variants.ScopePriorityRemote), global),
		NewLayer(variants.NewScope("user", variants.ScopePriorityUser), user),
	}, WithDeepMerge())
	if err != nil {
		t.Fatalf("layered: %v", err)
	}
	r := variants.NewResolver(layered)

	res := variants.ResolveDetail(r, "home_button_color", "#0000FF")
	if res.Value != "#FF0000" || res.Reason != variants.ReasonAssigned {
		t.Fatalf("expected global value, got %v (%s)", res.Value, res.Reason)
	}
	banner := variants.Resolve(r, "banner", map[string]string{})
	if banner["title"] != "Mine" || banner["color"] != "#0000FF" {
		t.Fatalf("expected nested nil to fall through, got %v", banner)
	}

	trace, _ := r.Trace("home_button_color")
	if trace.Layers[0].Found {
		t.Fatalf("expected nil user layer to be reported as not found, got %+v", trace.Layers[0])
	}
	winner, ok := trace.Winner()
	if !ok || winner.Scope.Name != "global" {
		t.Fatalf("unexpected winner %+v", winner)
	}
}

func TestLayeredValidation(t *testing.T) {
	_, err := NewLayered([]Layer{
		NewLayer(variants.NewScope("a", 1), NewMemory(nil)),
		NewLayer(variants.NewScope("a", 2), NewMemory(nil)),
	})
	if !errors.Is(err, variants.ErrDuplicateScopeName) {
		t.Fatalf("expected duplicate scope error, got %v", err)
	}

	_, err = NewLayered([]Layer{NewLayer(variants.NewScope("a", 1), nil)})
	if !errors.Is(err, ErrNilLayerSource) {
		t.Fatalf("expected ErrNilLayerSource, got %v", err)
	}
}
