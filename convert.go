package variants

import (
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/goliatone/go-variants/internal/clone"
	"github.com/goliatone/go-variants/internal/hydrate"
)

// convertAssignment reads key from view as T.
func convertAssignment[T any](view Assignments, key Key, def T) (T, Resolution[T]) {
	if err := key.Validate(); err != nil {
		res := fallback(key, def, ReasonInvalidKey, view.Revision(), err)
		return res.Value, res
	}
	raw, found := view.Lookup(key)
	res := decide(key, raw, found, def, view.Revision())
	return res.Value, res
}

// decide turns an already copied raw value into a Resolution.
func decide[T any](key Key, raw any, found bool, def T, revision uint64) Resolution[T] {
	if !found || raw == nil {
		return fallback(key, def, ReasonMissing, revision, nil)
	}
	value, err := convertValue[T](key, raw)
	if err != nil {
		return fallback(key, def, ReasonTypeMismatch, revision, &ResolutionError{
			Key:      key,
			Reason:   ReasonTypeMismatch,
			Expected: typeLabel[T](),
			Actual:   fmt.Sprintf("%T", raw),
			Err:      err,
		})
	}
	if err := validateValue(value); err != nil {
		return fallback(key, def, ReasonInvalid, revision, &ResolutionError{
			Key:      key,
			Reason:   ReasonInvalid,
			Expected: typeLabel[T](),
			Actual:   fmt.Sprintf("%T", raw),
			Err:      err,
		})
	}
	return Resolution[T]{Key: key, Value: value, Reason: ReasonAssigned, Revision: revision}
}

func fallback[T any](key Key, def T, reason Reason, revision uint64, err error) Resolution[T] {
	return Resolution[T]{
		Key:      key,
		Value:    clone.Value(def),
		Reason:   reason,
		Revision: revision,
		Err:      err,
	}
}

func convertValue[T any](key Key, raw any) (T, error) {
	var zero T
	if typed, ok := raw.(T); ok {
		return typed, nil
	}

	if text, ok := textOf(raw); ok {
		var out T
		if unmarshaler, ok := any(&out).(encoding.TextUnmarshaler); ok {
			if err := unmarshaler.UnmarshalText(text); err != nil {
				return zero, err
			}
			return out, nil
		}
	}

	target := reflect.TypeOf(&zero).Elem()
	source := reflect.ValueOf(raw)
	out := reflect.New(target).Elem()

	switch target.Kind() {
	case reflect.Bool:
		if source.Kind() == reflect.Bool {
			out.SetBool(source.Bool())
			return out.Interface().(T), nil
		}
	case reflect.String:
		if _, isNumber := raw.(json.Number); !isNumber && source.Kind() == reflect.String {
			out.SetString(source.String())
			return out.Interface().(T), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if number, ok := numberOf(raw); ok && setNumber(out, number) {
			return out.Interface().(T), nil
		}
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		if source.Kind() == reflect.Map || source.Kind() == reflect.Slice {
			decoder := hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[T]())
			return decoder.Decode(hydrate.Context{Key: string(key)}, raw)
		}
	}
	return zero, ErrTypeMismatch
}

func textOf(raw any) ([]byte, bool) {
	switch typed := raw.(type) {
	case string:
		return []byte(typed), true
	case []byte:
		return typed, true
	default:
		return nil, false
	}
}

// number holds a numeric source value in its widest lossless form.
type number struct {
	kind reflect.Kind
	i    int64
	u    uint64
	f    float64
}

func numberOf(raw any) (number, bool) {
	if n, ok := raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return number{kind: reflect.Int64, i: i}, true
		}
		if f, err := n.Float64(); err == nil {
			return number{kind: reflect.Float64, f: f}, true
		}
		return number{}, false
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: reflect.Int64, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: reflect.Uint64, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: reflect.Float64, f: rv.Float()}, true
	default:
		return number{}, false
	}
}

// setNumber stores n into out when the conversion loses nothing.
func setNumber(out reflect.Value, n number) bool {
	switch out.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var i int64
		switch n.kind {
		case reflect.Int64:
			i = n.i
		case reflect.Uint64:
			if n.u > math.MaxInt64 {
				return false
			}
			i = int64(n.u)
		default:
			if !integral(n.f) || n.f < math.MinInt64 || n.f >= math.MaxInt64 {
				return false
			}
			i = int64(n.f)
		}
		if out.OverflowInt(i) {
			return false
		}
		out.SetInt(i)
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var u uint64
		switch n.kind {
		case reflect.Int64:
			if n.i < 0 {
				return false
			}
			u = uint64(n.i)
		case reflect.Uint64:
			u = n.u
		default:
			if !integral(n.f) || n.f < 0 || n.f >= math.MaxUint64 {
				return false
			}
			u = uint64(n.f)
		}
		if out.OverflowUint(u) {
			return false
		}
		out.SetUint(u)
		return true
	case reflect.Float32, reflect.Float64:
		var f float64
		switch n.kind {
		case reflect.Int64:
			f = float64(n.i)
			if f >= math.MaxInt64 || int64(f) != n.i {
				return false
			}
		case reflect.Uint64:
			f = float64(n.u)
			if f >= math.MaxUint64 || uint64(f) != n.u {
				return false
			}
		default:
			f = n.f
		}
		if out.OverflowFloat(f) {
			return false
		}
		if out.Kind() == reflect.Float32 && !math.IsNaN(f) && float64(float32(f)) != f {
			return false
		}
		out.SetFloat(f)
		return true
	default:
		return false
	}
}

func integral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}

func typeLabel[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
