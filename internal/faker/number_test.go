package faker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecimals(t *testing.T) {
	assert.Equal(t, 0, Decimals(12))
	assert.Equal(t, 2, Decimals(12.34))
	assert.Equal(t, 2, Decimals(json.Number("12.50")))
	assert.Equal(t, 3, Decimals("1.000"))
	assert.Equal(t, 0, Decimals(json.Number("1e3")))
	a, b := 0.1, 0.2
	assert.Equal(t, MaxFloatDecimals, Decimals(a+b))
	assert.Equal(t, 1, Decimals(0.1+0.2))
}

func TestFormatDecimals(t *testing.T) {
	assert.Equal(t, 0.35, FormatDecimals(0.349, 3, 2))
	assert.Equal(t, json.Number("0.350"), FormatDecimals(0.35, json.Number("1"), 3))
	assert.Equal(t, "0.4", FormatDecimals(0.36, "1", 1))
}

func TestIntegerDigits(t *testing.T) {
	assert.Equal(t, 1, IntegerDigits(0))
	assert.Equal(t, 1, IntegerDigits(0.75))
	assert.Equal(t, 3, IntegerDigits(1000-0.5))
	assert.Equal(t, 4, IntegerDigits(1000))
	assert.Equal(t, 4, IntegerDigits(-1234.5))
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		val  any
		want float64
		ok   bool
	}{
		{12, 12, true},
		{int8(-3), -3, true},
		{uint32(7), 7, true},
		{float32(1.5), 1.5, true},
		{json.Number("19.99"), 19.99, true},
		{" 42 ", 42, true},
		{"abc", 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat(tt.val)
		assert.Equal(t, tt.ok, ok, "%#v", tt.val)
		assert.Equal(t, tt.want, got, "%#v", tt.val)
	}
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		name string
		f    float64
		like any
		want any
	}{
		{"int", 12.6, 1, 13},
		{"int8 clamped", 500, int8(1), int8(127)},
		{"uint clamped", -5, uint(3), uint(0)},
		{"float", 12.346, 1.25, 12.35},
		{"float no decimals", 12.6, 1.0, 13.0},
		{"float32", 2.5, float32(1.5), float32(2.5)},
		{"json integer", 41.7, json.Number("10"), json.Number("42")},
		{"json decimal", 41.7, json.Number("10.00"), json.Number("41.70")},
		{"string", 3.14159, "2.50", "3.14"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromFloat(tt.f, tt.like)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	_, err := FromFloat(1, true)
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}
