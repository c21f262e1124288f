package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Object returns v as a Record.
func Object(v interface{}) (Record, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	default:
		return nil, false
	}
}

// Array returns v as a slice of values. []Record is widened so callers can
// feed already-extracted data back in.
func Array(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case []interface{}:
		return t, true
	case []Record:
		out := make([]interface{}, len(t))
		for i, r := range t {
			out[i] = r
		}
		return out, true
	default:
		return nil, false
	}
}

// Lookup walks nested objects along path.
func Lookup(r Record, path ...string) (interface{}, bool) {
	var cur interface{} = r
	for _, p := range path {
		obj, ok := Object(cur)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// First returns the first path in paths that resolves to a non-nil value.
// Each path is a dot separated key list, e.g. "orderInfo.total".
func First(r Record, paths ...string) (interface{}, bool) {
	for _, p := range paths {
		if v, ok := Lookup(r, strings.Split(p, ".")...); ok {
			return v, true
		}
	}
	return nil, false
}

// Scalar renders a primitive JSON value as a string. Objects, arrays, nil
// and empty strings do not count.
func Scalar(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	default:
		return "", false
	}
}

// String returns the first path resolving to a scalar, rendered as a string.
func String(r Record, paths ...string) string {
	for _, p := range paths {
		if v, ok := Lookup(r, strings.Split(p, ".")...); ok {
			if s, ok := Scalar(v); ok {
				return s
			}
		}
	}
	return ""
}

// Int coerces a JSON value to an integer the way a lenient parseInt would:
// numbers are truncated and numeric strings are parsed. Values beyond the
// range of int saturate at its bounds.
func Int(v interface{}) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i), true
		}
		if f, err := t.Float64(); err == nil || errors.Is(err, strconv.ErrRange) {
			return truncate(f)
		}
	case float64:
		return truncate(t)
	case int:
		return t, true
	case int64:
		if t >= math.MinInt && t <= math.MaxInt {
			return int(t), true
		}
		return truncate(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return truncate(f)
		}
	}
	return 0, false
}

// truncate drops the fraction of f, saturating at the int bounds.
// NaN is not a number of anything and is reported as not ok.
func truncate(f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt:
		return math.MaxInt, true
	case f <= math.MinInt:
		return math.MinInt, true
	default:
		return int(f), true
	}
}

// Decimal coerces a JSON number or numeric string to a decimal.
// Anything else, including unparsable strings, is reported as not ok.
func Decimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		return d, err == nil
	}
	return decimal.Zero, false
}

// DecimalAt returns the first path whose value coerces to a decimal.
func DecimalAt(r Record, paths ...string) (decimal.Decimal, bool) {
	for _, p := range paths {
		if v, ok := Lookup(r, strings.Split(p, ".")...); ok {
			if d, ok := Decimal(v); ok {
				return d, true
			}
		}
	}
	return decimal.Zero, false
}

// Bool accepts JSON booleans and the strings "true"/"false".
func Bool(v interface{}) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	}
	return false, false
}
