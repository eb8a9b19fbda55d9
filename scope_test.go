package variants

import (
	"errors"
	"testing"
)

func TestOrderScopesStrongestFirst(t *testing.T) {
	scopes := []Scope{
		NewScope("defaults", ScopePriorityDefaults),
		NewScope("override", ScopePriorityOverride),
		NewScope("user", ScopePriorityUser, WithScopeLabel("User")),
	}

	order, err := OrderScopes(scopes)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	want := []int{1, 2, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestOrderScopesValidation(t *testing.T) {
	cases := []struct {
		name   string
		scopes []Scope
		want   error
	}{
		{name: "missing name", scopes: []Scope{NewScope("", 1)}, want: ErrScopeNameRequired},
		{name: "duplicate name", scopes: []Scope{NewScope("a", 1), NewScope("a", 2)}, want: ErrDuplicateScopeName},
		{name: "duplicate priority", scopes: []Scope{NewScope("a", 1), NewScope("b", 1)}, want: ErrPriorityOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := OrderScopes(tc.scopes); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestScopeMetadataIsCopied(t *testing.T) {
	meta := map[string]any{"source": "remote"}
	scope := NewScope("remote", ScopePriorityRemote, WithScopeMetadata(meta))
	meta["source"] = "mutated"

	if scope.Metadata["source"] != "remote" {
		t.Fatalf("expected metadata copy, got %v", scope.Metadata)
	}
	cloned := scope.Clone()
	cloned.Metadata["source"] = "changed"
	if scope.Metadata["source"] != "remote" {
		t.Fatalf("expected clone detached")
	}
	if !(Scope{}).IsZero() || scope.IsZero() {
		t.Fatalf("unexpected IsZero results")
	}
}
