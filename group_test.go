package variants

import (
	"errors"
	"testing"

	"github.com/goliatone/go-variants/pkg/activity"
)

func TestHomeGroupReadsAssignments(t *testing.T) {
	r := NewResolver(Static(map[string]any{
		"button_color": "#FF0000",
	}))
	home := NewHomeGroup(r)

	if got := home.ButtonColor().String(); got != "#FF0000" {
		t.Fatalf("expected assigned color, got %s", got)
	}
	if home.ShowImage() {
		t.Fatalf("expected missing show_image to default to false")
	}
	if got := home.HeroTitle(); got != "Welcome" {
		t.Fatalf("expected default title, got %q", got)
	}
	if home.ID() != "home" {
		t.Fatalf("unexpected group id %q", home.ID())
	}
}

func TestHomeGroupDefaultsWithoutAssignments(t *testing.T) {
	home := NewHomeGroup(NewResolver(Static(nil)))

	if got := home.ButtonColor().String(); got != "#0000FF" {
		t.Fatalf("expected default color, got %s", got)
	}
	if got := home.MaxItems(); got != 10 {
		t.Fatalf("expected default max items, got %d", got)
	}
}

func TestZeroGroupReturnsDefaults(t *testing.T) {
	var home HomeGroup
	if got := home.HeroTitle(); got != "Welcome" {
		t.Fatalf("expected default from zero group, got %q", got)
	}
	if home.Revision() != 0 || home.Pinned() {
		t.Fatalf("expected zero group to report no state")
	}
}

func TestGroupDetailAttributesGroup(t *testing.T) {
	var logged []ResolutionLogEvent
	r := NewResolver(Static(map[string]any{"max_items": "lots"}), WithLogger(ResolutionLoggerFunc(func(e ResolutionLogEvent) {
		logged = append(logged, e)
	})))
	home := NewHomeGroup(r)

	res := maxItems.Detail(home.Group)
	if res.Value != 10 || res.Reason != ReasonTypeMismatch {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if len(logged) != 1 || logged[0].Group != "home" || logged[0].Key != "max_items" {
		t.Fatalf("unexpected log events %+v", logged)
	}
}

func TestGroupFallbackEventObjectID(t *testing.T) {
	capture := &activity.CaptureHook{}
	r := NewResolver(Static(nil), WithActivityHooks(activity.Hooks{capture}))

	NewHomeGroup(r).ShowImage()

	events := capture.Recorded()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].ObjectID != "home/show_image" || events[0].Channel != activity.DefaultChannel {
		t.Fatalf("unexpected event %+v", events[0])
	}
}

func TestVarAccessors(t *testing.T) {
	tags := Define("tags", []string{"a"})
	def := tags.Default()
	def[0] = "mutated"
	if tags.Default()[0] != "a" {
		t.Fatalf("expected Default to return copies")
	}

	d := buttonColor.Descriptor()
	if d.Key != "button_color" || d.Type != "variants.Color" || d.Description != "Primary CTA color" {
		t.Fatalf("unexpected descriptor %+v", d)
	}
	if got := heroTitle.Resolve(NewResolver(Static(map[string]any{"hero_title": "Hi"}))); got != "Hi" {
		t.Fatalf("expected direct resolve, got %q", got)
	}
}

func TestCatalogRejectsDuplicateKeys(t *testing.T) {
	_, err := NewCatalog("home", buttonColor, Define("button_color", "red"))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	_, err = NewCatalog("home", Define("", 1))
	if !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestCatalogDescribesGroup(t *testing.T) {
	if homeCatalog.Group() != "home" || homeCatalog.Len() != 4 {
		t.Fatalf("unexpected catalog %s/%d", homeCatalog.Group(), homeCatalog.Len())
	}
	keys := homeCatalog.Keys()
	if keys[0] != "button_color" || keys[3] != "max_items" {
		t.Fatalf("expected declaration order, got %v", keys)
	}
	defaults := homeCatalog.Defaults()
	if defaults["hero_title"] != "Welcome" || defaults["show_image"] != false {
		t.Fatalf("unexpected defaults %+v", defaults)
	}
}
