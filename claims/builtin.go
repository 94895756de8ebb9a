package claims

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

type funcValidator struct {
	key string
	fn  func(context.Context, Subject) Result
}

func (v funcValidator) Key() string { return v.key }

func (v funcValidator) Validate(ctx context.Context, s Subject) Result {
	return v.fn(ctx, s)
}

// Func adapts fn into a [Validator] reported under key.
func Func(key string, fn func(ctx context.Context, s Subject) Result) Validator {
	return funcValidator{key: key, fn: fn}
}

// Boolean requires payload[key] to be the boolean want.
func Boolean(key string, want bool) Validator {
	return Func(key, func(_ context.Context, s Subject) Result {
		raw, ok := s.Payload[key]
		if !ok {
			return Fail("value does not exist")
		}
		got, ok := raw.(bool)
		if !ok {
			return Fail(fmt.Sprintf("expected boolean, got %T", raw))
		}
		if got != want {
			return Fail(fmt.Sprintf("wrong value: expected %t", want))
		}
		return Pass()
	})
}

// Equals requires payload[key] to equal value. Numbers compare by value
// regardless of their Go type.
func Equals(key string, value any) Validator {
	return Func(key, func(_ context.Context, s Subject) Result {
		raw, ok := s.Payload[key]
		if !ok {
			return Fail("value does not exist")
		}
		if !equalValues(raw, value) {
			return Fail(fmt.Sprintf("wrong value: expected %v", value))
		}
		return Pass()
	})
}

// Includes requires payload[key] to be an array containing value. Any
// slice or array type is accepted.
func Includes(key string, value any) Validator {
	return Func(key, func(_ context.Context, s Subject) Result {
		raw, ok := s.Payload[key]
		if !ok {
			return Fail("value does not exist")
		}
		list := reflect.ValueOf(raw)
		if k := list.Kind(); k != reflect.Slice && k != reflect.Array {
			return Fail(fmt.Sprintf("expected array, got %T", raw))
		}
		for i := range list.Len() {
			if equalValues(list.Index(i).Interface(), value) {
				return Pass()
			}
		}
		return Fail(fmt.Sprintf("wrong value: %v not included", value))
	})
}

// MaxAge requires payload[key] to be a unix millisecond timestamp no older
// than maxAge at now(). A nil now uses time.Now.
func MaxAge(key string, maxAge time.Duration, now func() time.Time) Validator {
	if now == nil {
		now = time.Now
	}
	return Func(key, func(_ context.Context, s Subject) Result {
		raw, ok := s.Payload[key]
		if !ok {
			return Fail("value does not exist")
		}
		ts, ok := toFloat(raw)
		if !ok {
			return Fail(fmt.Sprintf("expected timestamp, got %T", raw))
		}
		age := now().UnixMilli() - int64(ts)
		if age > maxAge.Milliseconds() {
			return Fail(fmt.Sprintf("expired: value older than %s", maxAge))
		}
		return Pass()
	})
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
