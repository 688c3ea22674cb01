package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidator(t *testing.T) {
	validator, err := NewConfigValidator()
	assert.NoError(t, err)

	assert.NoError(t, validator.Validate(map[string]any{}))
	assert.NoError(t, validator.Validate(map[string]any{
		"preserve_relationships":  true,
		"generate_realistic_data": false,
		"financial_ranges": []any{
			map[string]any{"pattern": "price", "min": 50, "max": 60.5},
		},
		"exclude_tables":  []any{"audit_logs"},
		"exclude_columns": []string{"status", "title"},
		"relationships": []any{
			map[string]any{"source_table": "lofts", "source_column": "owner_id", "target_table": "users", "target_column": "id", "relationship_type": "many-to-one"},
		},
		"column_types":   []any{map[string]any{"column": "users.contact", "type": "email"}},
		"jitter_percent": 0.2,
		"seed":           42,
		"parallelism":    4,
		"deadline":       "1m30s",
	}))
}

func TestConfigValidatorRejects(t *testing.T) {
	validator, err := NewConfigValidator()
	assert.NoError(t, err)

	tests := []struct {
		name string
		doc  map[string]any
	}{
		{"unknown key", map[string]any{"preserve": true}},
		{"wrong type", map[string]any{"preserve_relationships": "yes"}},
		{"missing range bound", map[string]any{"financial_ranges": []any{map[string]any{"pattern": "price", "min": 1}}}},
		{"empty pattern", map[string]any{"financial_ranges": []any{map[string]any{"pattern": "", "min": 1, "max": 2}}}},
		{"incomplete relationship", map[string]any{"relationships": []any{map[string]any{"source_table": "lofts"}}}},
		{"unknown relationship type", map[string]any{"relationships": []any{map[string]any{"source_table": "a", "source_column": "b", "target_table": "c", "target_column": "d", "relationship_type": "many-to-many"}}}},
		{"unknown column type", map[string]any{"column_types": []any{map[string]any{"column": "x", "type": "ssn"}}}},
		{"jitter out of range", map[string]any{"jitter_percent": 1.5}},
		{"zero jitter", map[string]any{"jitter_percent": 0}},
		{"fractional seed", map[string]any{"seed": 1.5}},
		{"negative parallelism", map[string]any{"parallelism": -1}},
		{"bad deadline", map[string]any{"deadline": "soon"}},
		{"duplicate exclusions", map[string]any{"exclude_tables": []any{"a", "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.doc)
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}
