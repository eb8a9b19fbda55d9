package variants

import (
	"time"

	"github.com/goliatone/go-variants/pkg/activity"
)

// Option configures a Resolver.
type Option func(*resolverConfig)

type resolverConfig struct {
	logger         ResolutionLogger
	hooks          activity.Hooks
	activity       activity.Config
	activitySet    bool
	resolvedEvents bool
	sticky         bool
	unitID         string
	tenantID       string
	clock          func() time.Time
}

func applyOptions(opts []Option) resolverConfig {
	cfg := resolverConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopResolutionLogger{}
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	if !cfg.activitySet {
		cfg.activity = activity.Config{Enabled: len(cfg.hooks) > 0}
	}
	return cfg
}

// WithLogger attaches a resolution logger. A nil logger disables logging.
func WithLogger(logger ResolutionLogger) Option {
	return func(cfg *resolverConfig) {
		if logger == nil {
			cfg.logger = noopResolutionLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks attaches activity hooks notified about fallbacks, group
// construction and snapshot capture. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := hooks.Clone()
	return func(cfg *resolverConfig) {
		cfg.hooks = normalized
	}
}

// WithActivityConfig overrides the activity emitter configuration. Without it
// emission is enabled whenever hooks are present.
func WithActivityConfig(config activity.Config) Option {
	return func(cfg *resolverConfig) {
		cfg.activity = config
		cfg.activitySet = true
	}
}

// WithResolvedEvents also emits an event for successful resolutions, not only
// for fallbacks.
func WithResolvedEvents() Option {
	return func(cfg *resolverConfig) {
		cfg.resolvedEvents = true
	}
}

// WithSticky caches the first raw value observed for each key for the lifetime
// of the resolver, so later source updates do not change what a session sees.
// Resolvers returned by Pin ignore the cache and read their pinned state.
func WithSticky() Option {
	return func(cfg *resolverConfig) {
		cfg.sticky = true
	}
}

// WithUnit tags emitted events with the experiment unit (user or device) and
// tenant the resolver serves.
func WithUnit(unitID, tenantID string) Option {
	return func(cfg *resolverConfig) {
		cfg.unitID = unitID
		cfg.tenantID = tenantID
	}
}

// WithClock overrides the time source used for event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(cfg *resolverConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}
