package promsink

import (
	"context"
	"testing"

	"github.com/goliatone/go-variants/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHookCountsEventsByLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook, err := NewHook(reg)
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}

	fallback := activity.BuildFallbackEvent(activity.VariantEventInput{Group: "home", Key: "image", Reason: "missing"})
	for i := 0; i < 3; i++ {
		if err := hook.Notify(context.Background(), fallback); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	_ = hook.Notify(context.Background(), activity.BuildGroupConstructedEvent(activity.VariantEventInput{Group: "home"}))
	_ = hook.Notify(context.Background(), activity.Event{})

	got := testutil.ToFloat64(hook.events.WithLabelValues(activity.VerbVariantFallback, "home", "image", "missing"))
	if got != 3 {
		t.Fatalf("expected 3 fallbacks counted, got %v", got)
	}
	if count := testutil.CollectAndCount(hook.events); count != 2 {
		t.Fatalf("expected 2 label series, got %d", count)
	}
}

func TestNewHookReusesRegisteredCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewHook(reg, WithNamespace("app"), WithSubsystem("ab"))
	if err != nil {
		t.Fatalf("first hook: %v", err)
	}
	second, err := NewHook(reg, WithNamespace("app"), WithSubsystem("ab"))
	if err != nil {
		t.Fatalf("second hook: %v", err)
	}
	if first.events != second.events {
		t.Fatalf("expected the registered collector to be shared")
	}
}

func TestNilHookIsNoop(t *testing.T) {
	var hook *Hook
	if err := hook.Notify(context.Background(), activity.Event{Verb: "x"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
