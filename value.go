// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// value.go — cell kinds and the type-tagging rules shared by the encoder and
// decoder: canonicalisation of Go values, per-vector kind selection, tagged
// cells for mixed vectors, and lenient numeric readers for every shape the
// wire codecs hand back (json.Number, float32/64, all integer widths).

package framewire

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

// Kind records how every value of one vector (a column, an index level, or a
// level-names list) is stored in the payload.
type Kind string

const (
	KindNull  Kind = "null"  // every value is nil
	KindBool  Kind = "bool"  // bool or nil
	KindInt   Kind = "int"   // int64 or nil
	KindFloat Kind = "float" // float64 or nil; non-finite values as text
	KindStr   Kind = "str"   // string or nil
	KindMixed Kind = "mixed" // every cell is a [tag, value] pair
)

func (k Kind) valid() bool {
	switch k {
	case KindNull, KindBool, KindInt, KindFloat, KindStr, KindMixed:
		return true
	}
	return false
}

// Cell tags used inside mixed vectors.
const (
	tagNull   = "null"
	tagBool   = "bool"
	tagInt    = "int"
	tagFloat  = "float"
	tagStr    = "str"
	tagMap    = "map"
	tagList   = "list"
	tagOpaque = "opaque"
)

// Non-finite float spellings. They only ever appear where the kind or tag
// says float, so they cannot be confused with user strings.
const (
	floatNaN    = "NaN"
	floatPosInf = "Inf"
	floatNegInf = "-Inf"
)

// Opaque is the decoded form of a value that was coerced to text through
// EncodeOptions.TextFallback. It is a distinct type so that it never compares
// equal to a genuine string cell.
type Opaque string

// normalize converts v to its canonical form: nil, bool, int64, float64,
// string, Opaque, map[string]any or []any (recursively).
func normalize(v any, textFallback bool) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64:
		return x, nil
	case string:
		return validText(x)
	case Opaque:
		if _, err := validText(string(x)); err != nil {
			return nil, err
		}
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			if _, err := validText(k); err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			n, err := normalize(e, textFallback)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = n
		}
		return m, nil
	case []any:
		l := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e, textFallback)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			l[i] = n
		}
		return l, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedValue, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return normalize(rv.String(), textFallback)
	case reflect.Slice, reflect.Array:
		l := make([]any, rv.Len())
		for i := range l {
			n, err := normalize(rv.Index(i).Interface(), textFallback)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			l[i] = n
		}
		return l, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if _, err := validText(k); err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			n, err := normalize(iter.Value().Interface(), textFallback)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = n
		}
		return m, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		if !textFallback || !isTextual(v) {
			return normalize(rv.Elem().Interface(), textFallback)
		}
	}

	if textFallback {
		switch t := v.(type) {
		case encoding.TextMarshaler:
			b, err := t.MarshalText()
			if err != nil {
				return nil, fmt.Errorf("%w: %T: %v", ErrUnsupportedValue, v, err)
			}
			return normalize(Opaque(b), false)
		case fmt.Stringer:
			return normalize(Opaque(t.String()), false)
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

// validText rejects strings that are not valid UTF-8.
func validText(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupportedValue)
	}
	return s, nil
}

func isTextual(v any) bool {
	switch v.(type) {
	case encoding.TextMarshaler, fmt.Stringer:
		return true
	}
	return false
}

// kindOf returns the scalar kind of a canonical value, or KindMixed for
// containers and opaque text.
func kindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindStr
	default:
		return KindMixed
	}
}

// vectorKind picks the narrowest kind that stores every value unambiguously.
// Nil never widens a kind; any disagreement between scalar kinds, or any
// container, makes the vector mixed.
func vectorKind(values []any) Kind {
	kind := KindNull
	for _, v := range values {
		k := kindOf(v)
		switch {
		case k == KindNull:
		case k == KindMixed:
			return KindMixed
		case kind == KindNull:
			kind = k
		case kind != k:
			return KindMixed
		}
	}
	return kind
}

func encodeFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return floatNaN
	case math.IsInf(f, 1):
		return floatPosInf
	case math.IsInf(f, -1):
		return floatNegInf
	default:
		return f
	}
}

// tagged wraps a canonical value as a [tag, value] pair, recursing into
// containers.
func tagged(v any) any {
	switch x := v.(type) {
	case nil:
		return []any{tagNull}
	case bool:
		return []any{tagBool, x}
	case int64:
		return []any{tagInt, x}
	case float64:
		return []any{tagFloat, encodeFloat(x)}
	case string:
		return []any{tagStr, x}
	case Opaque:
		return []any{tagOpaque, string(x)}
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = tagged(e)
		}
		return []any{tagMap, m}
	case []any:
		l := make([]any, len(x))
		for i, e := range x {
			l[i] = tagged(e)
		}
		return []any{tagList, l}
	default:
		// normalize never yields anything else.
		panic(fmt.Sprintf("framewire: untaggable canonical value %T", v))
	}
}

var errWrongShape = errors.New("value does not match its kind")

// untag reverses tagged.
func untag(v any) (any, error) {
	pair, ok := asList(v)
	if !ok || len(pair) == 0 {
		return nil, fmt.Errorf("%w: want [tag, value], got %T", errWrongShape, v)
	}
	tag, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: tag is %T, want string", errWrongShape, pair[0])
	}
	if tag == tagNull {
		if len(pair) != 1 {
			return nil, fmt.Errorf("%w: null tag carries a value", errWrongShape)
		}
		return nil, nil
	}
	if len(pair) != 2 {
		return nil, fmt.Errorf("%w: tag %q needs exactly one value, got %d", errWrongShape, tag, len(pair)-1)
	}
	x := pair[1]
	switch tag {
	case tagBool:
		return readBool(x)
	case tagInt:
		return readInt(x)
	case tagFloat:
		return readFloat(x)
	case tagStr:
		return readString(x)
	case tagOpaque:
		s, err := readString(x)
		return Opaque(s), err
	case tagMap:
		m, ok := asMap(x)
		if !ok {
			return nil, fmt.Errorf("%w: map tag carries %T", errWrongShape, x)
		}
		out := make(map[string]any, len(m))
		for k, e := range m {
			d, err := untag(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = d
		}
		return out, nil
	case tagList:
		l, ok := asList(x)
		if !ok {
			return nil, fmt.Errorf("%w: list tag carries %T", errWrongShape, x)
		}
		out := make([]any, len(l))
		for i, e := range l {
			d, err := untag(e)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = d
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", errWrongShape, tag)
	}
}

// asList accepts the sequence shapes decoders produce for an any target.
func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// asMap accepts string-keyed maps, including the map[any]any that some
// decoders produce when they are not told otherwise.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = e
		}
		return out, true
	}
	return nil, false
}

func readBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: want bool, got %T", errWrongShape, v)
	}
	return b, nil
}

func readString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", errWrongShape, v)
	}
	return s, nil
}

func readInt(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an int64", errWrongShape, n)
		}
		return i, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", errWrongShape, n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", errWrongShape, n)
		}
		return int64(n), nil
	case float64:
		return integralFloat(n)
	case float32:
		return integralFloat(float64(n))
	}
	return 0, fmt.Errorf("%w: want int, got %T", errWrongShape, v)
}

func integralFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %v is not an int64", errWrongShape, f)
	}
	return int64(f), nil
}

func readFloat(v any) (float64, error) {
	switch n := v.(type) {
	case string:
		switch n {
		case floatNaN:
			return math.NaN(), nil
		case floatPosInf:
			return math.Inf(1), nil
		case floatNegInf:
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("%w: %q is not a float", errWrongShape, n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a float", errWrongShape, n)
		}
		return f, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	i, err := readInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: want float, got %T", errWrongShape, v)
	}
	return float64(i), nil
}

// valuesEqual compares canonical forms; NaN equals NaN and int64(1) does not
// equal float64(1).
func valuesEqual(a, b any) bool {
	na, errA := normalize(a, true)
	nb, errB := normalize(b, true)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return canonicalEqual(na, nb)
}

func canonicalEqual(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || (math.IsNaN(x) && math.IsNaN(y)))
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, e := range x {
			f, ok := y[k]
			if !ok || !canonicalEqual(e, f) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !canonicalEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
