package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	variants "github.com/goliatone/go-variants"
	"github.com/goliatone/go-variants/pkg/source"
)

// SourceOption configures a rule Source.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	engines       map[string]Evaluator
	defaultEngine string
	functions     *FunctionRegistry
	cache         ProgramCache
	logger        EvaluatorLogger
}

// WithEvaluator registers e under engine, replacing any built-in evaluator.
func WithEvaluator(engine string, e Evaluator) SourceOption {
	return func(cfg *sourceConfig) {
		if e == nil {
			return
		}
		cfg.engines[strings.ToLower(engine)] = e
	}
}

// WithDefaultEngine selects the engine for rules that do not name one.
func WithDefaultEngine(engine string) SourceOption {
	return func(cfg *sourceConfig) {
		cfg.defaultEngine = strings.ToLower(engine)
	}
}

// WithFunctions exposes extra functions to the built-in evaluators, next to
// bucket, pick and rollout.
func WithFunctions(registry *FunctionRegistry) SourceOption {
	return func(cfg *sourceConfig) {
		cfg.functions = registry.Clone()
	}
}

// WithProgramCache shares compiled programs across sources.
func WithProgramCache(cache ProgramCache) SourceOption {
	return func(cfg *sourceConfig) {
		cfg.cache = cache
	}
}

// WithEvaluatorLogger records every rule evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) SourceOption {
	return func(cfg *sourceConfig) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}

type compiledRule struct {
	rule    Rule
	engine  string
	program CompiledRule
}

// Source is a variants.Source whose assignments are computed by rules for
// one rule context. A rule that fails or yields nil leaves its key
// unassigned, so the resolver falls back to the caller's default.
type Source struct {
	rules  []compiledRule
	mem    *source.Memory
	logger EvaluatorLogger

	mu  sync.Mutex
	ctx RuleContext
}

// NewSource compiles rules and evaluates them against ctx. Compile errors are
// returned; evaluation errors are logged and leave keys unassigned. Call
// Refresh to receive them.
func NewSource(rules []Rule, ctx RuleContext, opts ...SourceOption) (*Source, error) {
	cfg := sourceConfig{
		engines:       map[string]Evaluator{},
		defaultEngine: EngineExpr,
		logger:        noopEvaluatorLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.installDefaults()

	s := &Source{
		rules:  make([]compiledRule, 0, len(rules)),
		mem:    source.NewMemory(nil),
		logger: cfg.logger,
	}
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[rule.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Key)
		}
		seen[rule.Key] = struct{}{}

		engine := strings.ToLower(strings.TrimSpace(rule.Engine))
		if engine == "" {
			engine = cfg.defaultEngine
		}
		evaluator, ok := cfg.engines[engine]
		if !ok {
			if engine == EngineJS {
				return nil, fmt.Errorf("%w: %s requires the js_eval build tag", ErrNoEvaluator, rule.Key)
			}
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownEngine, engine, rule.Key)
		}
		program, err := evaluator.Compile(rule.Expr)
		if err != nil {
			return nil, fmt.Errorf("rules: compile %s: %w", rule.Key, err)
		}
		s.rules = append(s.rules, compiledRule{rule: rule, engine: engine, program: program})
	}

	_ = s.Refresh(ctx)
	return s, nil
}

func (cfg *sourceConfig) installDefaults() {
	functions := Builtins()
	if cfg.functions != nil {
		functions = cfg.functions.Merge(functions)
	}
	if _, ok := cfg.engines[EngineExpr]; !ok {
		cfg.engines[EngineExpr] = NewExprEvaluator(ExprWithProgramCache(cfg.cache), ExprWithFunctionRegistry(functions))
	}
	if _, ok := cfg.engines[EngineCEL]; !ok {
		cfg.engines[EngineCEL] = NewCELEvaluator(CELWithProgramCache(cfg.cache), CELWithFunctionRegistry(functions))
	}
	if _, ok := cfg.engines[EngineJS]; !ok && JSAvailable() {
		cfg.engines[EngineJS] = NewJSEvaluator(JSWithProgramCache(cfg.cache), JSWithFunctionRegistry(functions))
	}
}

// Assignments implements variants.Source.
func (s *Source) Assignments() variants.Assignments {
	return s.mem.Assignments()
}

// Subscribe is notified after every refresh.
func (s *Source) Subscribe(fn func(variants.Assignments)) (cancel func()) {
	return s.mem.Subscribe(fn)
}

// Context returns the rule context of the latest refresh.
func (s *Source) Context() RuleContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// Rules returns the configured rules in order.
func (s *Source) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, compiled := range s.rules {
		out[i] = compiled.rule
	}
	return out
}

// Refresh re-evaluates every rule against ctx and publishes the results as
// one revision. The returned error joins every failed evaluation.
func (s *Source) Refresh(ctx RuleContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.evaluate(ctx)
	s.ctx = ctx
	s.mem.Replace(values)
	return err
}

// Evaluate runs every rule against ctx without publishing the results.
func (s *Source) Evaluate(ctx RuleContext) (map[string]any, error) {
	return s.evaluate(ctx)
}

func (s *Source) evaluate(ctx RuleContext) (map[string]any, error) {
	values := make(map[string]any, len(s.rules))
	var errs []error
	for _, compiled := range s.rules {
		start := time.Now()
		value, err := compiled.program.Evaluate(ctx)
		s.logger.LogEvaluation(EvaluatorLogEvent{
			Key:      compiled.rule.Key,
			Engine:   compiled.engine,
			Expr:     compiled.rule.Expr,
			Scope:    ctx.scopeLabel(),
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("rules: %s: %w", compiled.rule.Key, err))
			continue
		}
		if value == nil {
			continue
		}
		values[compiled.rule.Key] = value
	}
	return values, errors.Join(errs...)
}
