package anonymizer

import (
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
)

const maxRetries = 5

var (
	nameSiblings    = []string{"name", "full_name", "fullname", "display_name", "contact_name", "customer_name"}
	countrySiblings = []string{"country", "country_code", "nationality"}
)

// differ retries fn until it returns something other than original.
func differ(original string, fn func() string) string {
	var res string
	for i := 0; i < maxRetries; i++ {
		if res = fn(); res != original {
			break
		}
	}
	return res
}

func expectString(kind Kind, original any) (string, error) {
	s, ok := original.(string)
	if !ok {
		return "", errors.Newf("%s values must be strings, got %T", kind, original)
	}
	return s, nil
}

// siblingName returns the fictitious name already produced for the row.
func siblingName(actx internal.AnonymizationContext) string {
	str := func(names ...string) string {
		for _, n := range names {
			if v, ok := actx.Siblings[n].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	first := str("first_name", "firstname", "given_name")
	last := str("last_name", "lastname", "surname", "family_name")
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	return str(nameSiblings...)
}

func (e *Engine) email(original any, actx internal.AnonymizationContext) (any, error) {
	s, err := expectString(Email, original)
	if err != nil {
		return nil, err
	}
	var name string
	if actx.GenerateRealisticData {
		name = siblingName(actx)
	}
	return differ(s, func() string { return e.gen.EmailFor(name) }), nil
}

func (e *Engine) phone(original any, actx internal.AnonymizationContext) (any, error) {
	var country string
	if v, ok := actx.Sibling(countrySiblings...); ok {
		country, _ = v.(string)
	}
	if s, ok := original.(string); ok {
		return e.gen.Phone(s, country), nil
	}
	f, ok := faker.ToFloat(original)
	if !ok || f != math.Trunc(f) || f < 0 {
		return nil, errors.Newf("phone values must be strings or positive integers, got %T", original)
	}
	digits := strconv.FormatFloat(f, 'f', 0, 64)
	nv, err := strconv.ParseFloat(e.gen.Phone(digits, ""), 64)
	if err != nil {
		return nil, err
	}
	return faker.FromFloat(nv, original)
}

func (e *Engine) name(original any, column string, actx internal.AnonymizationContext) (any, error) {
	s, err := expectString(Name, original)
	if err != nil {
		return nil, err
	}
	if !actx.GenerateRealisticData {
		return e.gen.Shape(s), nil
	}
	col := strings.ToLower(column)
	var fn func() string
	switch {
	case strings.Contains(col, "first") || strings.Contains(col, "given"):
		fn = e.gen.FirstName
	case strings.Contains(col, "last") || strings.Contains(col, "surname") || strings.Contains(col, "family"):
		fn = e.gen.LastName
	case strings.Contains(col, "user") || strings.Contains(col, "login"):
		fn = e.gen.Username
	case strings.Contains(col, "company") || strings.Contains(col, "business") || strings.Contains(col, "org"):
		fn = e.gen.Company
	default:
		fn = e.gen.FullName
	}
	return differ(s, fn), nil
}

func (e *Engine) address(original any, column string, actx internal.AnonymizationContext) (any, error) {
	s, ok := original.(string)
	if !ok {
		// numeric postal codes keep their type
		return e.generic(original, actx)
	}
	if !actx.GenerateRealisticData {
		return e.gen.Shape(s), nil
	}
	col := strings.ToLower(column)
	var fn func() string
	switch {
	case strings.Contains(col, "zip") || strings.Contains(col, "postal") || strings.Contains(col, "postcode"):
		fn = func() string { return e.gen.PostalCode(s) }
	case strings.Contains(col, "city"):
		fn = e.gen.City
	case strings.Contains(col, "state") || strings.Contains(col, "province"):
		fn = e.gen.State
	default:
		fn = e.gen.Street
	}
	return differ(s, fn), nil
}

func (e *Engine) financial(original any, column string) (any, error) {
	f, ok := faker.ToFloat(original)
	if !ok {
		return nil, errors.Newf("financial values must be numeric, got %T", original)
	}
	r, ok := e.config.FinancialRangeFor(column)
	if !ok {
		var nv any
		var err error
		for i := 0; i < maxRetries; i++ {
			if nv, err = faker.FromFloat(e.gen.Jitter(f, e.config.JitterPercent), original); err != nil || nv != original {
				break
			}
		}
		return nv, err
	}
	lo, hi := rangeBounds(r, faker.Decimals(original))
	if lo > hi {
		return nil, e.rangeFallback(original, r)
	}
	nv, err := faker.FromFloat(e.gen.Float64Range(lo, hi), original)
	if err != nil {
		return nil, err
	}
	if got, _ := faker.ToFloat(nv); got < r.Min {
		return faker.FromFloat(lo, original)
	} else if got > r.Max {
		return faker.FromFloat(hi, original)
	}
	return nv, nil
}

func rangeBounds(r internal.FinancialRange, decimals int) (float64, float64) {
	p := math.Pow10(decimals)
	return math.Ceil(r.Min*p) / p, math.Floor(r.Max*p) / p
}

// rangeFallbackError is returned when the range holds no value with the precision of the original. The value
// it carries lies within the range at the first precision which fits.
type rangeFallbackError struct {
	value any
	cause error
}

func (e *rangeFallbackError) Error() string { return e.cause.Error() }
func (e *rangeFallbackError) Unwrap() error { return e.cause }

func (e *Engine) rangeFallback(original any, r internal.FinancialRange) error {
	decimals := faker.Decimals(original)
	cause := errors.Newf("no value of %T with %d decimals within [%v, %v]", original, decimals, r.Min, r.Max)
	for d := decimals + 1; d <= faker.MaxFloatDecimals; d++ {
		lo, hi := rangeBounds(r, d)
		if lo > hi {
			continue
		}
		nv := faker.FormatDecimals(e.gen.Float64Range(lo, hi), original, d)
		if got, _ := faker.ToFloat(nv); got < lo {
			nv = faker.FormatDecimals(lo, original, d)
		} else if got > hi {
			nv = faker.FormatDecimals(hi, original, d)
		}
		return &rangeFallbackError{value: nv, cause: cause}
	}
	return &rangeFallbackError{value: (r.Min + r.Max) / 2, cause: cause}
}

func (e *Engine) generic(original any, actx internal.AnonymizationContext) (any, error) {
	return e.gen.Generate(faker.PrimitiveOf(original), original, actx, faker.Options{ContextAware: actx.GenerateRealisticData})
}
