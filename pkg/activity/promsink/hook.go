// Package promsink counts variant activity events with Prometheus so fallback
// rates per key can be alerted on.
package promsink

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-variants/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace = "variants"
	defaultName      = "events_total"
)

// Option configures the Prometheus hook.
type Option func(*config)

type config struct {
	namespace string
	subsystem string
	name      string
}

// WithNamespace overrides the metric namespace (default "variants").
func WithNamespace(namespace string) Option {
	return func(cfg *config) {
		cfg.namespace = namespace
	}
}

// WithSubsystem sets the metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(cfg *config) {
		cfg.subsystem = subsystem
	}
}

// Hook increments a counter labelled by verb, group, key and reason for every
// event it receives.
type Hook struct {
	events *prometheus.CounterVec
}

// NewHook builds a Hook and registers its collector on reg. When an identical
// collector is already registered it is reused, so multiple resolvers can share
// one registry.
func NewHook(reg prometheus.Registerer, opts ...Option) (*Hook, error) {
	cfg := config{namespace: defaultNamespace, name: defaultName}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: cfg.subsystem,
		Name:      cfg.name,
		Help:      "Variant lifecycle events by verb, group, key and reason.",
	}, []string{"verb", "group", "key", "reason"})

	if err := reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("promsink: register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("promsink: collector %q registered with a different type", cfg.name)
		}
		vec = existing
	}
	return &Hook{events: vec}, nil
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil || h.events == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" {
		return nil
	}
	h.events.WithLabelValues(normalized.Verb, normalized.Group, normalized.Key, normalized.Reason).Inc()
	return nil
}
