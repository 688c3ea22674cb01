package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/tracker"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
)

func writeSource(t *testing.T, ownerID int) string {
	dir := t.TempDir()
	files := map[string]string{
		"users.ndjson": `{"id":1,"name":"Alice Cooper","email":"alice@corp.com"}
{"id":2,"name":"Bob Dylan","email":"bob@corp.com"}
`,
		"lofts.ndjson": `{"id":10,"owner_id":` + jsonInt(ownerID) + `,"price":1250.50}
`,
		"relationships.json": `[{"sourceTable":"lofts","sourceColumn":"owner_id","targetTable":"users","targetColumn":"id"}]`,
	}
	for name, content := range files {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func jsonInt(v int) string {
	return util.JSONStringify(v)
}

func readBack(t *testing.T, dir string) map[string]*internal.RelationalTable {
	r, err := snapshot.NewReader(context.Background(), logger.NewTestLogger(), "file://"+dir, nil)
	assert.NoError(t, err)
	defer r.Close()
	tables, err := r.Read(context.Background())
	assert.NoError(t, err)
	res := make(map[string]*internal.RelationalTable)
	for _, table := range tables {
		res[table.Name] = table
	}
	return res
}

func testOptions(t *testing.T, source string) anonymizeOptions {
	cfg, err := internal.NewAnonymizationConfig(internal.WithSeed(7))
	assert.NoError(t, err)
	return anonymizeOptions{
		Source:     "file://" + source,
		Target:     "file://" + filepath.Join(t.TempDir(), "out"),
		Config:     cfg,
		ConfigHash: "test",
		DataDir:    filepath.Join(t.TempDir(), "data"),
		Quiet:      true,
	}
}

func TestRunAnonymize(t *testing.T) {
	opts := testOptions(t, writeSource(t, 1))
	run, err := runAnonymize(context.Background(), logger.NewTestLogger(), opts)
	assert.NoError(t, err)
	assert.NotNil(t, run)
	assert.True(t, run.Result.Success)
	assert.Equal(t, 2, run.Result.ProcessedTables)

	out := readBack(t, opts.Target[len("file://"):])
	assert.Len(t, out, 2)
	users, lofts := out["users"], out["lofts"]
	assert.Len(t, users.Rows, 2)
	assert.Equal(t, users.Rows[0]["id"], lofts.Rows[0]["owner_id"])
	assert.NotEqual(t, "Alice Cooper", users.Rows[0]["name"])
	assert.NotEqual(t, "alice@corp.com", users.Rows[0]["email"])
	assert.Len(t, lofts.Relationships, 1)

	tr, err := tracker.NewTracker(tracker.TrackerConfig{Context: context.Background(), Logger: logger.NewTestLogger(), Dir: opts.DataDir})
	assert.NoError(t, err)
	defer tr.Close()
	runs, err := tr.ListRuns(0)
	assert.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "test", runs[0].ConfigHash)
	assert.True(t, runs[0].Result.Success)
}

func TestRunAnonymizeIncomplete(t *testing.T) {
	source := writeSource(t, 99)

	opts := testOptions(t, source)
	run, err := runAnonymize(context.Background(), logger.NewTestLogger(), opts)
	assert.ErrorIs(t, err, errRunIncomplete)
	assert.NotNil(t, run)
	assert.False(t, run.Result.Success)
	assert.Len(t, run.Result.ErrorsOf(internal.ErrorKindDanglingReference), 1)
	assert.False(t, util.Exists(opts.Target[len("file://"):]))

	opts = testOptions(t, source)
	opts.Force = true
	run, err = runAnonymize(context.Background(), logger.NewTestLogger(), opts)
	assert.NoError(t, err)
	assert.False(t, run.Result.Success)
	assert.True(t, util.Exists(opts.Target[len("file://"):]))
}

func TestRunAnonymizeDryRun(t *testing.T) {
	opts := testOptions(t, writeSource(t, 2))
	opts.DryRun = true
	run, err := runAnonymize(context.Background(), logger.NewTestLogger(), opts)
	assert.NoError(t, err)
	assert.True(t, run.DryRun)
	assert.False(t, util.Exists(opts.Target[len("file://"):]))
}

func TestRunAnonymizeMissingSource(t *testing.T) {
	opts := testOptions(t, filepath.Join(t.TempDir(), "missing"))
	run, err := runAnonymize(context.Background(), logger.NewTestLogger(), opts)
	assert.Error(t, err)
	assert.Nil(t, run)
}
