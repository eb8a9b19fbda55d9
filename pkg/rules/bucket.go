package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Bucket deterministically maps unit into [0, n) for the experiment salt.
func Bucket(unit, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(xxhash.Sum64String(salt+":"+unit) % uint64(n))
}

// Pick returns the option unit's bucket selects, or nil without options.
func Pick(unit, salt string, options []any) any {
	if len(options) == 0 {
		return nil
	}
	return options[Bucket(unit, salt, len(options))]
}

// Rollout reports whether unit falls within the first percent of buckets.
func Rollout(unit, salt string, percent float64) bool {
	return float64(Bucket(unit, salt, 10000)) < percent*100
}

// Builtins returns a registry holding bucket, pick and rollout.
func Builtins() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("bucket", func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("rules: bucket expects (unit, salt, n), got %d args", len(args))
		}
		n, err := toInt(args[2])
		if err != nil {
			return nil, fmt.Errorf("rules: bucket size: %w", err)
		}
		return Bucket(fmt.Sprint(args[0]), fmt.Sprint(args[1]), n), nil
	})
	_ = registry.Register("pick", func(args ...any) (any, error) {
		if len(args) < 3 {
			return nil, fmt.Errorf("rules: pick expects (unit, salt, options...), got %d args", len(args))
		}
		options := args[2:]
		if len(options) == 1 {
			if list, ok := toList(options[0]); ok {
				options = list
			}
		}
		return Pick(fmt.Sprint(args[0]), fmt.Sprint(args[1]), options), nil
	})
	_ = registry.Register("rollout", func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("rules: rollout expects (unit, salt, percent), got %d args", len(args))
		}
		percent, err := toFloat(args[2])
		if err != nil {
			return nil, fmt.Errorf("rules: rollout percent: %w", err)
		}
		return Rollout(fmt.Sprint(args[0]), fmt.Sprint(args[1]), percent), nil
	})
	return registry
}

func toInt(value any) (int, error) {
	f, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", value)
	}
	return int(f), nil
}

func toFloat(value any) (float64, error) {
	if number, ok := value.(json.Number); ok {
		return number.Float64()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	default:
		return 0, fmt.Errorf("%T is not a number", value)
	}
}

func toList(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
