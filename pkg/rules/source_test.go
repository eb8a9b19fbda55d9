package rules

import (
	"errors"
	"testing"

	variants "github.com/goliatone/go-variants"
)

func homeRules() []Rule {
	return []Rule{
		{Key: "home_button_color", Expr: `pick(unit, "home", ["#FF0000", "#0000FF"])`},
		{Key: "home_show_image", Expr: `country == "NZ"`, Engine: EngineCEL},
		{Key: "home_max_items", Expr: `rollout(unit, "items", 100) ? 20 : 10`},
		{Key: "home_hero_title", Expr: `nil`},
	}
}

func TestSourceComputesAssignments(t *testing.T) {
	src, err := NewSource(homeRules(), RuleContext{
		Unit:       "user-7",
		Attributes: map[string]any{"country": "NZ"},
	})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	r := variants.NewResolver(src)

	wantColor := Pick("user-7", "home", []any{"#FF0000", "#0000FF"}).(string)
	if got := variants.Resolve(r, "home_button_color", variants.MustColor("#000000")); got.String() != wantColor {
		t.Fatalf("expected %s, got %s", wantColor, got)
	}
	if !variants.Resolve(r, "home_show_image", false) {
		t.Fatalf("expected NZ users to see the image")
	}
	if got := variants.Resolve(r, "home_max_items", 0); got != 20 {
		t.Fatalf("expected 20 items, got %d", got)
	}
	res := variants.ResolveDetail(r, "home_hero_title", "Welcome")
	if res.Value != "Welcome" || res.Reason != variants.ReasonMissing {
		t.Fatalf("expected nil rule to leave key unassigned, got %+v", res)
	}
}

func TestSourceRefreshPublishesRevision(t *testing.T) {
	src, err := NewSource(homeRules(), RuleContext{Unit: "u", Attributes: map[string]any{"country": "NZ"}})
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	before := src.Assignments()

	var notified uint64
	cancel := src.Subscribe(func(view variants.Assignments) { notified = view.Revision() })
	defer cancel()

	if err := src.Refresh(RuleContext{Unit: "u", Attributes: map[string]any{"country": "US"}}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	after := src.Assignments()
	if after.Revision() <= before.Revision() || notified != after.Revision() {
		t.Fatalf("expected new revision, before=%d after=%d notified=%d", before.Revision(), after.Revision(), notified)
	}
	if got, _ := after.Lookup("home_show_image"); got != false {
		t.Fatalf("expected US users not to see the image, got %v", got)
	}
	if got, _ := before.Lookup("home_show_image"); got != true {
		t.Fatalf("expected earlier view unchanged, got %v", got)
	}
	if src.Context().Attributes["country"] != "US" {
		t.Fatalf("expected context to track refresh")
	}
}

func TestSourceEvaluationFailureOmitsKey(t *testing.T) {
	functions := NewFunctionRegistry()
	if err := functions.Register("fail", func(...any) (any, error) {
		return nil, errors.New("upstream unavailable")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	var logged []EvaluatorLogEvent
	rules := []Rule{
		{Key: "ok", Expr: `1 + 1`},
		{Key: "broken", Expr: `fail()`},
	}
	src, err := NewSource(rules, RuleContext{},
		WithFunctions(functions),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			logged = append(logged, event)
		})),
	)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}

	view := src.Assignments()
	if !view.Has("ok") || view.Has("broken") {
		t.Fatalf("expected only ok assigned, got %v", view.Keys())
	}
	if len(logged) != 2 || logged[1].Key != "broken" || logged[1].Err == nil {
		t.Fatalf("unexpected log events %+v", logged)
	}

	err = src.Refresh(RuleContext{})
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Engine != EngineExpr {
		t.Fatalf("expected EvaluationError from refresh, got %v", err)
	}
	if _, err := src.Evaluate(RuleContext{}); err == nil {
		t.Fatalf("expected Evaluate to report the failure")
	}
}

func TestSourceConstructionErrors(t *testing.T) {
	cases := []struct {
		name  string
		rules []Rule
		want  error
	}{
		{name: "unknown engine", rules: []Rule{{Key: "a", Expr: "1", Engine: "lua"}}, want: ErrUnknownEngine},
		{name: "duplicate key", rules: []Rule{{Key: "a", Expr: "1"}, {Key: "a", Expr: "2"}}, want: ErrDuplicateRule},
		{name: "empty expression", rules: []Rule{{Key: "a"}}, want: ErrEmptyExpression},
		{name: "empty key", rules: []Rule{{Expr: "1"}}, want: variants.ErrKeyRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewSource(tc.rules, RuleContext{}); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := NewSource([]Rule{{Key: "a", Expr: "1 +"}}, RuleContext{}); err == nil {
		t.Fatalf("expected compile error")
	}
	if !JSAvailable() {
		_, err := NewSource([]Rule{{Key: "a", Expr: "1", Engine: EngineJS}}, RuleContext{})
		if !errors.Is(err, ErrNoEvaluator) {
			t.Fatalf("expected ErrNoEvaluator, got %v", err)
		}
	}
}

func TestSourceDefaultEngineAndSharedCache(t *testing.T) {
	cache := &fakeProgramCache{}
	rules := []Rule{{Key: "adult", Expr: `age >= 18`}}
	for _, age := range []int{20, 12} {
		src, err := NewSource(rules, RuleContext{Attributes: map[string]any{"age": age}},
			WithDefaultEngine(EngineCEL),
			WithProgramCache(cache),
		)
		if err != nil {
			t.Fatalf("new source: %v", err)
		}
		got, _ := src.Assignments().Lookup("adult")
		if got != (age >= 18) {
			t.Fatalf("age %d: unexpected adult %v", age, got)
		}
		if src.Rules()[0].Key != "adult" {
			t.Fatalf("unexpected rules %+v", src.Rules())
		}
	}
	if cache.hits == 0 {
		t.Fatalf("expected the second source to reuse the compiled program")
	}
}
