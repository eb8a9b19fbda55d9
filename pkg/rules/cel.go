package rules

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"golang.org/x/sync/singleflight"
)

// celMaxArity bounds the argument count of registry functions exposed to CEL,
// which has no variadic overloads.
const celMaxArity = 6

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
	flight   singleflight.Group
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Engine() string {
	return EngineCEL
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

// Compile checks syntax only. Programs are built at evaluation time because
// CEL declares variables up front and the attribute set can differ per unit.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(EngineCEL, ErrEmptyExpression)
	}
	env, err := celgo.NewEnv()
	if err != nil {
		return nil, wrapEvaluatorError(EngineCEL, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", issues.Err())
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) program(expression string, attributes []string) (celgo.Program, error) {
	key := EngineCEL + ":" + strings.Join(attributes, ",") + ":" + expression
	program, err := loadOrCompile(e.cache, &e.flight, key, func() (celgo.Program, error) {
		env, err := e.buildEnv(attributes)
		if err != nil {
			return nil, err
		}
		ast, issues := env.Compile(expression)
		if issues != nil && issues.Err() != nil {
			return nil, issues.Err()
		}
		return env.Program(ast)
	})
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, expression, "", err)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv(attributes []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("unit", celgo.StringType),
		celgo.Variable("attrs", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("scope", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	for _, name := range attributes {
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
			for arity := 1; arity <= celMaxArity; arity++ {
				args := make([]*celgo.Type, arity)
				for i := range args {
					args[i] = celgo.DynType
				}
				overloads = append(overloads, celgo.Overload(
					fmt.Sprintf("%s_dyn_%d", name, arity),
					args,
					celgo.DynType,
					celgo.FunctionBinding(e.binding(name)),
				))
			}
			opts = append(opts, celgo.Function(name, overloads...))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) binding(name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, celNative(val))
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	activation := ctx.bindings()
	program, err := r.evaluator.program(r.expression, attributeNames(activation))
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(activation)
	if err != nil {
		return nil, wrapEvaluationError(EngineCEL, r.expression, ctx.scopeLabel(), err)
	}
	return celNative(out), nil
}

func attributeNames(activation map[string]any) []string {
	names := make([]string, 0, len(activation))
	for name := range activation {
		switch name {
		case "unit", "attrs", "now", "metadata", "scope":
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// celNative converts CEL values, including lists and maps, to plain Go values.
func celNative(val ref.Val) any {
	switch typed := val.(type) {
	case traits.Lister:
		size, _ := typed.Size().Value().(int64)
		out := make([]any, 0, size)
		for i := int64(0); i < size; i++ {
			out = append(out, celNative(typed.Get(types.Int(i))))
		}
		return out
	case traits.Mapper:
		out := map[string]any{}
		it := typed.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(celNative(key))] = celNative(typed.Get(key))
		}
		return out
	default:
		return val.Value()
	}
}
