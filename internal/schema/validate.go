package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/spf13/cast"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Validate checks a proposed value for key on a node of type t and returns
// the normalized value to store. Strings holding numbers are accepted for
// numeric fields. Values outside a field's range are rejected; values inside
// it are stored as given, whatever the field's step.
func Validate(t types.NodeType, key string, value any) (any, error) {
	if !t.Valid() {
		return nil, errdefs.Rejected(fmt.Sprintf("unknown component type %q", t), map[string]any{
			"type": string(t),
		})
	}
	s, ok := lookupSpec(t, key)
	if !ok {
		return nil, reject(t, key, value, "is not an editable field")
	}

	switch s.kind {
	case KindText, KindTextArea:
		if !isScalar(value) {
			return nil, reject(t, key, value, "must be a string")
		}
		str, err := cast.ToStringE(value)
		if err != nil {
			return nil, reject(t, key, value, "must be a string")
		}
		return str, nil

	case KindEnum:
		str, err := cast.ToStringE(value)
		if err != nil || !isScalar(value) {
			return nil, reject(t, key, value, "must be one of the listed options")
		}
		for _, opt := range s.options {
			if opt.Value == str {
				return str, nil
			}
		}
		return nil, reject(t, key, value, "must be one of the listed options")

	case KindBoolean:
		if value == nil || !isScalar(value) {
			return nil, reject(t, key, value, "must be true or false")
		}
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, reject(t, key, value, "must be true or false")
		}
		return b, nil

	case KindInteger:
		f, err := toNumber(value)
		if err != nil {
			return nil, reject(t, key, value, "must be a whole number")
		}
		if f != math.Trunc(f) {
			return nil, reject(t, key, value, "must be a whole number")
		}
		if s.ranged && (f < s.min || f > s.max) {
			return nil, reject(t, key, value, fmt.Sprintf("must be between %g and %g", s.min, s.max))
		}
		return int(f), nil

	case KindNumber:
		f, err := toNumber(value)
		if err != nil {
			return nil, reject(t, key, value, "must be a number")
		}
		if s.ranged && (f < s.min || f > s.max) {
			return nil, reject(t, key, value, fmt.Sprintf("must be between %g and %g", s.min, s.max))
		}
		return f, nil
	}
	return nil, reject(t, key, value, "is read-only")
}

// Apply validates value and returns a copy of cfg with key replaced.
// cfg itself is never modified.
func Apply(t types.NodeType, cfg types.Config, key string, value any) (types.Config, error) {
	v, err := Validate(t, key, value)
	if err != nil {
		return nil, err
	}
	out := cfg.Clone()
	out[key] = v
	return out, nil
}

// Normalize validates every key of cfg that t describes and returns a copy
// with normalized values. Keys t does not describe are kept as they are so
// that configs written by newer editors survive a round trip.
func Normalize(t types.NodeType, cfg types.Config) (types.Config, error) {
	out := cfg.Clone()
	for _, key := range Keys(t) {
		raw, ok := cfg[key]
		if !ok {
			continue
		}
		v, err := Validate(t, key, raw)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func reject(t types.NodeType, key string, value any, reason string) error {
	return errdefs.Rejected(fmt.Sprintf("%s.%s %s", t, key, reason), map[string]any{
		"type":  string(t),
		"key":   key,
		"value": fmt.Sprint(value),
	})
}

func toNumber(value any) (float64, error) {
	if value == nil || !isScalar(value) {
		return 0, fmt.Errorf("not a number: %v", value)
	}
	if _, isBool := value.(bool); isBool {
		return 0, fmt.Errorf("not a number: %v", value)
	}
	var (
		f   float64
		err error
	)
	if n, ok := value.(json.Number); ok {
		f, err = n.Float64()
	} else {
		f, err = cast.ToFloat64E(value)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", value)
	}
	return f, nil
}

func isScalar(value any) bool {
	if value == nil {
		return true
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Func, reflect.Chan:
		return false
	}
	return true
}
