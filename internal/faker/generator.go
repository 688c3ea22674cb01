// Package faker generates fictitious replacement values.
package faker

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal"
)

// ErrUnsupportedValue is returned when a value has a Go representation the generator cannot reproduce.
var ErrUnsupportedValue = errors.New("unsupported value")

// PrimitiveType is the primitive class of a value.
type PrimitiveType int

const (
	Null PrimitiveType = iota
	String
	Number
	Boolean
	Date
	Bytes
	Object
	Array
)

func (p PrimitiveType) String() string {
	switch p {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Date:
		return "date"
	case Bytes:
		return "bytes"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return fmt.Sprintf("primitive(%d)", int(p))
}

// PrimitiveOf returns the primitive type of the value.
func PrimitiveOf(v any) PrimitiveType {
	switch v.(type) {
	case nil:
		return Null
	case string:
		return String
	case bool:
		return Boolean
	case json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Number
	case time.Time:
		return Date
	case []byte:
		return Bytes
	case map[string]any, internal.Row:
		return Object
	case []any:
		return Array
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return Object
	case reflect.Slice, reflect.Array:
		return Array
	}
	return String
}

// Options control a single generation.
type Options struct {
	// ContextAware lets the generator pick a plausible value from the column and its siblings.
	ContextAware bool
}

// Generator produces fake values. It is safe for concurrent use.
type Generator struct {
	f *gofakeit.Faker
}

// New returns a generator, a zero seed picks a random one.
func New(seed uint64) *Generator {
	return &Generator{f: gofakeit.New(seed)}
}

// Generate returns a fake value of the same primitive type and Go representation as the original.
func (g *Generator) Generate(primitive PrimitiveType, original any, actx internal.AnonymizationContext, opts Options) (any, error) {
	switch primitive {
	case Null:
		return nil, nil
	case String:
		s, ok := original.(string)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "expected a string, got %T", original)
		}
		return g.fakeString(s, actx, opts), nil
	case Number:
		return g.fakeNumber(original)
	case Boolean:
		if _, ok := original.(bool); !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "expected a bool, got %T", original)
		}
		return g.f.Bool(), nil
	case Date:
		tv, ok := original.(time.Time)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "expected a time, got %T", original)
		}
		return g.fakeTime(tv), nil
	case Bytes:
		b, ok := original.([]byte)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "expected bytes, got %T", original)
		}
		res := make([]byte, len(b))
		for i := range res {
			res[i] = byte(g.f.IntRange(0, 255))
		}
		return res, nil
	case Object:
		return g.fakeObject(original, actx, opts)
	case Array:
		arr, ok := original.([]any)
		if !ok {
			return nil, errors.Wrapf(ErrUnsupportedValue, "expected an array, got %T", original)
		}
		res := make([]any, len(arr))
		for i, v := range arr {
			nv, err := g.Generate(PrimitiveOf(v), v, actx, opts)
			if err != nil {
				return nil, err
			}
			res[i] = nv
		}
		return res, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedValue, "unknown primitive %s", primitive)
}

func (g *Generator) fakeObject(original any, actx internal.AnonymizationContext, opts Options) (any, error) {
	var src map[string]any
	switch v := original.(type) {
	case map[string]any:
		src = v
	case internal.Row:
		src = v
	default:
		return nil, errors.Wrapf(ErrUnsupportedValue, "expected an object, got %T", original)
	}
	res := make(map[string]any, len(src))
	for k, v := range src {
		child := actx
		child.ColumnName = k
		child.OriginalValue = v
		nv, err := g.Generate(PrimitiveOf(v), v, child, opts)
		if err != nil {
			return nil, err
		}
		res[k] = nv
	}
	if _, ok := original.(internal.Row); ok {
		return internal.Row(res), nil
	}
	return res, nil
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, time.DateTime, time.DateOnly}

func (g *Generator) fakeString(s string, actx internal.AnonymizationContext, opts Options) string {
	if s == "" {
		return s
	}
	for _, layout := range dateLayouts {
		if tv, err := time.Parse(layout, s); err == nil {
			for i := 0; i < 5; i++ {
				if res := g.fakeTime(tv).Format(layout); res != s {
					return res
				}
			}
			return tv.AddDate(0, 0, 1).Format(layout)
		}
	}
	if isDigits(s) {
		return g.Digits(len(s))
	}
	if opts.ContextAware {
		if v := g.byColumn(actx.ColumnName, s); v != "" && v != s {
			return v
		}
	}
	return g.Shape(s)
}

// byColumn returns a realistic value picked from the column name or an empty string.
func (g *Generator) byColumn(column string, original string) string {
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "company") || strings.Contains(name, "business"):
		return g.f.Company()
	case strings.Contains(name, "country"):
		if len(original) == 2 {
			return g.f.CountryAbr()
		}
		return g.f.Country()
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return g.f.URL()
	case strings.Contains(name, "user") || strings.Contains(name, "login"):
		return g.f.Username()
	case strings.Contains(name, "title") || strings.Contains(name, "job"):
		return g.f.JobTitle()
	case strings.ContainsRune(original, ' '):
		return g.words(len(strings.Fields(original)))
	}
	return ""
}

func (g *Generator) words(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = g.f.Word()
	}
	return strings.Join(words, " ")
}

func (g *Generator) fakeTime(tv time.Time) time.Time {
	const year = 365 * 24 * time.Hour
	for i := 0; i < 5; i++ {
		nv := g.f.DateRange(tv.Add(-year), tv.Add(year)).In(tv.Location())
		if tv.Nanosecond() == 0 {
			nv = nv.Truncate(time.Second)
		}
		if !nv.Equal(tv) {
			return nv
		}
	}
	return tv.Add(24 * time.Hour)
}

func (g *Generator) fakeNumber(original any) (any, error) {
	f, ok := ToFloat(original)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedValue, "expected a number, got %T", original)
	}
	digits := IntegerDigits(f)
	decimals := Decimals(original)
	sign := 1.0
	if f < 0 {
		sign = -1
	}
	for i := 0; i < 5; i++ {
		var nf float64
		if decimals == 0 {
			nf = sign * float64(g.IntWithDigits(digits))
		} else {
			lo := math.Pow10(digits - 1)
			if digits == 1 {
				lo = 0
			}
			nf = sign * g.f.Float64Range(lo, math.Pow10(digits))
		}
		nv, err := FromFloat(nf, original)
		if err != nil {
			return nil, err
		}
		if nv != original {
			return nv, nil
		}
	}
	return FromFloat(f+1, original)
}

// Shape returns a string of the same character classes as s: letters keep their case, digits stay
// digits and every other character is kept.
func (g *Generator) Shape(s string) string {
	alnum := strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0
	for i := 0; i < 5; i++ {
		var sb strings.Builder
		for _, r := range s {
			switch {
			case unicode.IsUpper(r):
				sb.WriteByte(byte('A' + g.f.IntRange(0, 25)))
			case unicode.IsLetter(r):
				sb.WriteByte(byte('a' + g.f.IntRange(0, 25)))
			case unicode.IsDigit(r):
				sb.WriteByte(byte('0' + g.f.IntRange(0, 9)))
			default:
				sb.WriteRune(r)
			}
		}
		if res := sb.String(); res != s || !alnum {
			return res
		}
	}
	return s + g.f.Lexify("?")
}

// Digits returns a random string of n digits.
func (g *Generator) Digits(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('0' + g.f.IntRange(0, 9)))
	}
	return sb.String()
}

// IntWithDigits returns a random positive integer with exactly n digits, n is clamped to [1, 18].
func (g *Generator) IntWithDigits(n int) int64 {
	n = max(1, min(n, 18))
	lo := int64(1)
	for i := 1; i < n; i++ {
		lo *= 10
	}
	if n == 1 {
		return int64(g.f.IntRange(0, 9))
	}
	return int64(g.f.IntRange(int(lo), int(lo*10-1)))
}

// Float64Range returns a uniform value in [min, max].
func (g *Generator) Float64Range(min, max float64) float64 {
	return g.f.Float64Range(min, max)
}

// zeroJitterMax bounds the value drawn in place of a zero, which has no proportion to move by.
const zeroJitterMax = 10

// Jitter returns the value moved by a random proportion within [-pct, pct], never the value itself. A zero
// becomes a value within [1, zeroJitterMax].
func (g *Generator) Jitter(v float64, pct float64) float64 {
	if v == 0 {
		return g.f.Float64Range(1, zeroJitterMax)
	}
	for i := 0; i < 5; i++ {
		nv := v * (1 + g.f.Float64Range(-pct, pct))
		if nv != v {
			return nv
		}
	}
	return v * (1 + pct)
}

// Bool returns a random boolean.
func (g *Generator) Bool() bool {
	return g.f.Bool()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
