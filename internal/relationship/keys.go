package relationship

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Canonical returns the comparable form of a key value. Numbers and their decimal text share the same
// form so that 1, int64(1), json.Number("1") and "1" are the same key.
func Canonical(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return strconv.FormatUint(u, 10)
		}
		if f, err := n.Float64(); err == nil {
			return canonicalFloat(f)
		}
		return string(n)
	case float64:
		return canonicalFloat(n)
	case float32:
		return canonicalFloat(float64(n))
	case bool:
		return "bool:" + strconv.FormatBool(n)
	case []byte:
		return "bytes:" + hex.EncodeToString(n)
	case time.Time:
		return "time:" + n.UTC().Format(time.RFC3339Nano)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.String:
		return rv.String()
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func canonicalFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Coerce converts a mapped identifier into the Go representation of like, the value it replaces. The
// mapped value is returned unchanged when no conversion applies.
func Coerce(mapped any, like any) any {
	if mapped == nil || like == nil {
		return mapped
	}
	if reflect.TypeOf(mapped) == reflect.TypeOf(like) {
		return mapped
	}
	text := Canonical(mapped)
	switch like.(type) {
	case string:
		if s, ok := mapped.(string); ok {
			return s
		}
		if isNumeric(mapped) {
			return text
		}
		return mapped
	case json.Number:
		if _, err := strconv.ParseFloat(text, 64); err == nil {
			return json.Number(text)
		}
		return mapped
	case float64:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
		return mapped
	case float32:
		if f, err := strconv.ParseFloat(text, 32); err == nil {
			return float32(f)
		}
		return mapped
	}
	rt := reflect.TypeOf(like)
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, err := strconv.ParseInt(text, 10, rt.Bits()); err == nil {
			return reflect.ValueOf(i).Convert(rt).Interface()
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u, err := strconv.ParseUint(text, 10, rt.Bits()); err == nil {
			return reflect.ValueOf(u).Convert(rt).Interface()
		}
	}
	return mapped
}

func isNumeric(v any) bool {
	switch v.(type) {
	case json.Number, float32, float64:
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
