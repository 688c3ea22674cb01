package util

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNDJSONRoundTrip(t *testing.T) {
	for _, name := range []string{"users.ndjson", "users.ndjson.gz"} {
		fn := filepath.Join(t.TempDir(), name)
		enc, err := NewNDJSONEncoder(fn)
		assert.NoError(t, err)
		assert.NoError(t, enc.Encode(map[string]any{"id": 1, "name": "<b>Jane</b>"}))
		assert.NoError(t, enc.Encode(map[string]any{"id": 12345678901234567, "price": json.Number("10.50")}))
		assert.Equal(t, 2, enc.Count())
		assert.NoError(t, enc.Close())

		dec, err := NewNDJSONDecoder(fn)
		assert.NoError(t, err)
		var rows []map[string]any
		for dec.More() {
			var row map[string]any
			assert.NoError(t, dec.Decode(&row))
			rows = append(rows, row)
		}
		assert.Equal(t, 2, dec.Count())
		assert.NoError(t, dec.Close())
		assert.Len(t, rows, 2)
		assert.Equal(t, "<b>Jane</b>", rows[0]["name"])
		assert.Equal(t, json.Number("12345678901234567"), rows[1]["id"])
		assert.Equal(t, json.Number("10.50"), rows[1]["price"])
	}
}

func TestNDJSONDecoderMissingFile(t *testing.T) {
	_, err := NewNDJSONDecoder(filepath.Join(t.TempDir(), "missing.ndjson"))
	assert.Error(t, err)
}
