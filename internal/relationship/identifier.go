package relationship

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
)

// minIdentifierDigits keeps generated numeric identifiers out of the range of typical small originals.
const minIdentifierDigits = 7

// newIdentifier returns a format preserving identifier for the original value. Every ten attempts the
// identifier grows by one digit or character so a crowded space still yields a unique value.
func newIdentifier(gen *faker.Generator, original any, attempt int) (any, error) {
	widen := attempt / 10
	switch v := original.(type) {
	case string:
		return newStringIdentifier(gen, v, widen), nil
	case json.Number:
		if _, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			n := max(minIdentifierDigits, len(strings.TrimPrefix(string(v), "-"))) + widen
			return json.Number(strconv.FormatInt(gen.IntWithDigits(n), 10)), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return faker.FromFloat(float64(gen.IntWithDigits(max(minIdentifierDigits, faker.IntegerDigits(f))+widen)), original)
	case float64, float32:
		f, _ := faker.ToFloat(v)
		return faker.FromFloat(float64(gen.IntWithDigits(max(minIdentifierDigits, faker.IntegerDigits(f))+widen)), original)
	case []byte:
		if len(v) == 16 {
			id := uuid.New()
			return id[:], nil
		}
	}
	rv := reflect.ValueOf(original)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Type().Bits() < 32 {
			hi := int(math.Ldexp(1, rv.Type().Bits()-1)) - 1
			return reflect.ValueOf(int64(gen.Float64Range(1, float64(hi)))).Convert(rv.Type()).Interface(), nil
		}
		n := max(minIdentifierDigits, len(strconv.FormatInt(abs(rv.Int()), 10))) + widen
		if rv.Type().Bits() == 32 {
			n = min(n, 9)
		}
		return reflect.ValueOf(gen.IntWithDigits(n)).Convert(rv.Type()).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Type().Bits() < 32 {
			hi := int(math.Ldexp(1, rv.Type().Bits())) - 1
			return reflect.ValueOf(uint64(gen.Float64Range(1, float64(hi)))).Convert(rv.Type()).Interface(), nil
		}
		n := max(minIdentifierDigits, len(strconv.FormatUint(rv.Uint(), 10))) + widen
		if rv.Type().Bits() == 32 {
			n = min(n, 9)
		}
		return reflect.ValueOf(uint64(gen.IntWithDigits(n))).Convert(rv.Type()).Interface(), nil
	}
	return gen.Generate(faker.PrimitiveOf(original), original, internal.AnonymizationContext{OriginalValue: original}, faker.Options{})
}

func newStringIdentifier(gen *faker.Generator, v string, widen int) string {
	if id, err := uuid.Parse(v); err == nil && id != uuid.Nil {
		res := uuid.New().String()
		if len(v) == 32 {
			res = strings.ReplaceAll(res, "-", "")
		}
		if strings.ToUpper(v) == v {
			res = strings.ToUpper(res)
		}
		return res
	}
	if v == "" {
		return gen.Digits(minIdentifierDigits + widen)
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return gen.Shape(v) + gen.Digits(widen)
		}
	}
	return gen.Digits(len(v) + widen)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
