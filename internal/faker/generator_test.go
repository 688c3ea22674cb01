package faker

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/stretchr/testify/assert"
)

func TestPrimitiveOf(t *testing.T) {
	tests := []struct {
		val  any
		want PrimitiveType
	}{
		{nil, Null},
		{"x", String},
		{true, Boolean},
		{1, Number},
		{int64(1), Number},
		{uint8(1), Number},
		{1.5, Number},
		{json.Number("12"), Number},
		{time.Now(), Date},
		{[]byte("x"), Bytes},
		{map[string]any{"a": 1}, Object},
		{internal.Row{"a": 1}, Object},
		{[]any{1}, Array},
		{[]string{"a"}, Array},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrimitiveOf(tt.val), "%#v", tt.val)
	}
}

func TestGenerateKeepsRepresentation(t *testing.T) {
	g := New(42)
	actx := internal.AnonymizationContext{TableName: "t", ColumnName: "c"}
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		val  any
	}{
		{"string", "Hello World"},
		{"digit string", "0012345"},
		{"int", 4242},
		{"int64", int64(-987654)},
		{"uint16", uint16(512)},
		{"float", 123.45},
		{"json integer", json.Number("900")},
		{"json decimal", json.Number("19.99")},
		{"time", now},
		{"bytes", []byte{1, 2, 3, 4}},
		{"object", map[string]any{"a": "abc", "b": 12}},
		{"array", []any{"abc", 12, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Generate(PrimitiveOf(tt.val), tt.val, actx, Options{})
			assert.NoError(t, err)
			assert.IsType(t, tt.val, res)
			if PrimitiveOf(tt.val) != Object && PrimitiveOf(tt.val) != Array && PrimitiveOf(tt.val) != Bytes {
				assert.NotEqual(t, tt.val, res)
			}
		})
	}
}

func TestGenerateNull(t *testing.T) {
	res, err := New(1).Generate(Null, nil, internal.AnonymizationContext{}, Options{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestGenerateUnsupported(t *testing.T) {
	_, err := New(1).Generate(String, 12, internal.AnonymizationContext{}, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	_, err = New(1).Generate(Number, struct{}{}, internal.AnonymizationContext{}, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestGenerateDateString(t *testing.T) {
	g := New(7)
	res, err := g.Generate(String, "2023-02-14", internal.AnonymizationContext{}, Options{})
	assert.NoError(t, err)
	s := res.(string)
	assert.NotEqual(t, "2023-02-14", s)
	_, err = time.Parse(time.DateOnly, s)
	assert.NoError(t, err)
}

func TestGenerateContextAware(t *testing.T) {
	g := New(7)
	actx := internal.AnonymizationContext{ColumnName: "company_name"}
	res, err := g.Generate(String, "Acme Corp", actx, Options{ContextAware: true})
	assert.NoError(t, err)
	assert.NotEqual(t, "Acme Corp", res)
	assert.NotEmpty(t, res)
}

func TestShape(t *testing.T) {
	g := New(3)
	for i := 0; i < 50; i++ {
		res := g.Shape("Ab-12 z")
		assert.Regexp(t, regexp.MustCompile(`^[A-Z][a-z]-[0-9]{2} [a-z]$`), res)
		assert.NotEqual(t, "Ab-12 z", res)
	}
	assert.Equal(t, "--", g.Shape("--"))
}

func TestIntWithDigits(t *testing.T) {
	g := New(3)
	for n := 1; n <= 18; n++ {
		v := g.IntWithDigits(n)
		assert.Len(t, strconv.FormatInt(v, 10), n, "digits %d got %d", n, v)
	}
	assert.Len(t, strconv.FormatInt(g.IntWithDigits(40), 10), 18)
}

func TestJitter(t *testing.T) {
	g := New(3)
	for i := 0; i < 100; i++ {
		v := g.Jitter(100, 0.3)
		assert.True(t, v >= 70 && v <= 130, "got %v", v)
		assert.NotEqual(t, 100.0, v)
	}
	for i := 0; i < 100; i++ {
		v := g.Jitter(0, 0.3)
		assert.True(t, v >= 1 && v <= zeroJitterMax, "got %v", v)
	}
}

func TestEmailFor(t *testing.T) {
	g := New(3)
	email := g.EmailFor("Jane O'Neil")
	assert.Regexp(t, regexp.MustCompile(`^jane\.o\.neil[0-9]{2}@example\.(com|net|org)$`), email)
	email = g.EmailFor("")
	assert.Regexp(t, regexp.MustCompile(`^[a-z]{8}[0-9]{2}@example\.(com|net|org)$`), email)
}

func TestPhone(t *testing.T) {
	g := New(3)
	res := g.Phone("(555) 123-4567", "")
	assert.Regexp(t, regexp.MustCompile(`^\([0-9]{3}\) [0-9]{3}-[0-9]{4}$`), res)
	assert.NotEqual(t, "(555) 123-4567", res)

	res = g.Phone("+1 555 123 4567", "France")
	assert.True(t, strings.HasPrefix(res, "+33 "), res)
	assert.Regexp(t, regexp.MustCompile(`^\+33 [0-9]{3} [0-9]{3} [0-9]{4}$`), res)

	res = g.Phone("06 12 34 56 78", "FR")
	assert.True(t, strings.HasPrefix(res, "0"), res)
	assert.Len(t, res, len("06 12 34 56 78"))
}

func TestCallingCode(t *testing.T) {
	assert.Equal(t, "1", CallingCode("US"))
	assert.Equal(t, "44", CallingCode(" United Kingdom "))
	assert.Equal(t, "", CallingCode("Atlantis"))
}

func TestGeneratorConcurrent(t *testing.T) {
	g := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, err := g.Generate(String, "abc", internal.AnonymizationContext{}, Options{})
				assert.NoError(t, err)
				g.FullName()
			}
		}()
	}
	wg.Wait()
}
