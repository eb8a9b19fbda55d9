package rules

import (
	"time"

	variants "github.com/goliatone/go-variants"
)

// Engine names.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// RuleContext carries the inputs an expression is evaluated against.
type RuleContext struct {
	// Unit identifies the experiment unit (user, device, session).
	Unit       string
	Attributes map[string]any
	Now        *time.Time
	Metadata   map[string]any
	Scope      variants.Scope
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Attributes == nil {
		ctx.Attributes = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	return *ctx.withDefaultNow().Now
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.Name != "" {
		return ctx.Scope.Name
	}
	return "unknown"
}

func (ctx RuleContext) scopeBinding() map[string]any {
	if ctx.Scope.IsZero() {
		return nil
	}
	binding := map[string]any{
		"name":     ctx.Scope.Name,
		"label":    ctx.Scope.Label,
		"priority": ctx.Scope.Priority,
	}
	if len(ctx.Scope.Metadata) > 0 {
		binding["metadata"] = ctx.Scope.Clone().Metadata
	}
	return binding
}

// bindings returns the variables every engine exposes. Attributes are also
// bound at the top level so rules can say `country == "NZ"`.
func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaults()
	env := make(map[string]any, len(ctx.Attributes)+5)
	for key, value := range ctx.Attributes {
		if validIdentifier(key) {
			env[key] = value
		}
	}
	env["unit"] = ctx.Unit
	env["attrs"] = ctx.Attributes
	env["now"] = ctx.timestamp()
	env["metadata"] = ctx.Metadata
	if binding := ctx.scopeBinding(); binding != nil {
		env["scope"] = binding
	} else {
		env["scope"] = map[string]any{}
	}
	return env
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EngineName returns the engine an evaluator runs on, or "custom".
func EngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	return "custom"
}
