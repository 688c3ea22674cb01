package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name string
		vals []any
		want string
	}{
		{
			name: "Empty input",
			vals: []any{},
			want: "ef46db3751d8e999",
		},
		{
			name: "Single value",
			vals: []any{"hello"},
			want: "26c7827d889f6da3",
		},
		{
			name: "Multiple values",
			vals: []any{"hello", 42, true},
			want: "d481b75d0fa4abff",
		},
		{
			name: "Multiple values with nil",
			vals: []any{"hello", 42, true, nil},
			want: "a668199a6b3fc355",
		},
		{
			name: "Nil only",
			vals: []any{nil},
			want: "7c5b4e400f80bf7c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.vals...)
			if got != tt.want {
				t.Errorf("Hash() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint(map[string]any{"seed": 42, "exclude_tables": []string{"audit_logs"}})
	b := Fingerprint(map[string]any{"exclude_tables": []string{"audit_logs"}, "seed": 42})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, Fingerprint(map[string]any{"seed": 43, "exclude_tables": []string{"audit_logs"}}))
	assert.Equal(t, Hash(`{"seed":42}`), Fingerprint(map[string]int{"seed": 42}))
}
