package faker

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxFloatDecimals is the precision kept for binary floating point values.
const MaxFloatDecimals = 6

// ToFloat returns the numeric value of v. Numeric strings are accepted.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// Decimals returns the number of decimals carried by the representation of v.
func Decimals(v any) int {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = string(n)
	case string:
		s = strings.TrimSpace(n)
	case float64:
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return 0
	}
	if strings.ContainsAny(s, "eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			s = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	d := len(s) - idx - 1
	if _, ok := v.(string); !ok && d > MaxFloatDecimals {
		d = MaxFloatDecimals
	}
	return d
}

// IntegerDigits returns the number of digits of the integer part of f, at least one.
func IntegerDigits(f float64) int {
	return len(strconv.FormatFloat(math.Abs(math.Trunc(f)), 'f', 0, 64))
}

// FromFloat converts f into the same Go representation as like, rounded to its decimals. Integer kinds
// are clamped to the bounds of their type.
func FromFloat(f float64, like any) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.Newf("cannot represent %v", f)
	}
	decimals := Decimals(like)
	switch like.(type) {
	case json.Number:
		return json.Number(strconv.FormatFloat(round(f, decimals), 'f', decimals, 64)), nil
	case string:
		return strconv.FormatFloat(round(f, decimals), 'f', decimals, 64), nil
	case float64:
		return round(f, decimals), nil
	case float32:
		return float32(round(f, decimals)), nil
	}
	rv := reflect.ValueOf(like)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := rv.Type().Bits()
		hi := math.Ldexp(1, bits-1) - 1
		lo := -math.Ldexp(1, bits-1)
		n := math.Max(lo, math.Min(hi, math.Round(f)))
		if n >= math.MaxInt64 {
			return reflect.ValueOf(int64(math.MaxInt64)).Convert(rv.Type()).Interface(), nil
		}
		return reflect.ValueOf(int64(n)).Convert(rv.Type()).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		bits := rv.Type().Bits()
		hi := math.Ldexp(1, bits) - 1
		n := math.Max(0, math.Min(hi, math.Round(f)))
		if n >= math.MaxUint64 {
			return reflect.ValueOf(uint64(math.MaxUint64)).Convert(rv.Type()).Interface(), nil
		}
		return reflect.ValueOf(uint64(n)).Convert(rv.Type()).Interface(), nil
	}
	return nil, errors.Wrapf(ErrUnsupportedValue, "expected a number, got %T", like)
}

// FormatDecimals returns f rounded to decimals. Strings and json.Number keep their representation, every
// other kind becomes a float64.
func FormatDecimals(f float64, like any, decimals int) any {
	switch like.(type) {
	case json.Number:
		return json.Number(strconv.FormatFloat(round(f, decimals), 'f', decimals, 64))
	case string:
		return strconv.FormatFloat(round(f, decimals), 'f', decimals, 64)
	}
	return round(f, decimals)
}

func round(f float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(f*p) / p
}
