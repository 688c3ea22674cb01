package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePreciseDate(t *testing.T) {
	date, err := parsePreciseDate("202407242003015854988560000000000")
	assert.NoError(t, err)
	assert.Equal(t, "2024-07-24T20:03:01.585498856Z", date.Format(time.RFC3339Nano))
}

func TestParseExportFile(t *testing.T) {
	table, ts, ok := parseExportFile("202407131650522808024600000000000-c7274317e9a4a9cb-1-651-00000000-customer-2.ndjson.gz")
	assert.True(t, ok)
	assert.Equal(t, "customer", table)

	table2, ts2, ok := parseExportFile("/export/2024-07-13/202407131650522808024800000000000-c7274317e9a4a9cb-1-651-00000000-customer-2.ndjson.gz")
	assert.True(t, ok)
	assert.Equal(t, "customer", table2)
	assert.True(t, ts.Before(ts2))

	table2, ts2, ok = parseExportFile("202407131650522808024500000000000-c7274317e9a4a9cb-1-651-00000000-work_order-2.ndjson.gz")
	assert.True(t, ok)
	assert.Equal(t, "work_order", table2)
	assert.True(t, ts2.Before(ts))

	_, _, ok = parseExportFile("customer.ndjson.gz")
	assert.False(t, ok)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "users.ndjson"), []byte("{}\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "lofts.ndjson.gz"), nil, 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".DS_Store"), nil, 0644))
	files, err := listFiles(dir)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "users.ndjson"), filepath.Join(dir, "nested", "lofts.ndjson.gz")}, files)
	_, err = listFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
