package snapshot

import (
	"context"
	"testing"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/stretchr/testify/assert"
)

type memoryDriver struct {
	config Config
	tables []*internal.RelationalTable
}

func (d *memoryDriver) NewReader(config Config) (Reader, error) {
	d.config = config
	return d, nil
}

func (d *memoryDriver) NewWriter(config Config) (Writer, error) {
	d.config = config
	return d, nil
}

func (d *memoryDriver) Read(ctx context.Context) ([]*internal.RelationalTable, error) {
	return d.tables, nil
}

func (d *memoryDriver) Write(ctx context.Context, tables []*internal.RelationalTable) error {
	d.tables = tables
	return nil
}

func (d *memoryDriver) Close() error {
	return nil
}

func (d *memoryDriver) Aliases() []string {
	return []string{"mem"}
}

type helpfulDriver struct {
	memoryDriver
}

func (d *helpfulDriver) Name() string        { return "Helpful" }
func (d *helpfulDriver) Description() string { return "A driver with help." }
func (d *helpfulDriver) ExampleURL() string  { return "helpful://" }
func (d *helpfulDriver) Help() string        { return "\x1b[32mTables\x1b[0m\n\nAll of them." }

func TestDriverMetadata(t *testing.T) {
	RegisterDriver("helpful", &helpfulDriver{})
	for _, md := range Drivers() {
		if md.Scheme == "helpful" {
			assert.Equal(t, "Helpful", md.Name)
			assert.Equal(t, "helpful://", md.ExampleURL)
			assert.Equal(t, "Tables\n\nAll of them.", md.Help)
			return
		}
	}
	assert.Fail(t, "helpful driver not registered")
}

func TestRegistry(t *testing.T) {
	d := &memoryDriver{}
	RegisterDriver("memory", d)

	w, err := NewWriter(context.Background(), logger.NewTestLogger(), "mem://snapshot", true)
	assert.NoError(t, err)
	assert.True(t, d.config.DryRun)
	assert.Equal(t, "mem://snapshot", d.config.URL)
	assert.NoError(t, w.Write(context.Background(), []*internal.RelationalTable{{Name: "users"}}))

	r, err := NewReader(context.Background(), logger.NewTestLogger(), "memory://snapshot", []string{"users"})
	assert.NoError(t, err)
	assert.False(t, d.config.DryRun)
	assert.Equal(t, []string{"users"}, d.config.Tables)
	tables, err := r.Read(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "users", tables[0].Name)

	_, err = NewReader(context.Background(), logger.NewTestLogger(), "unknown://snapshot", nil)
	assert.ErrorContains(t, err, "no snapshot driver registered for protocol unknown")

	var found bool
	for _, md := range Drivers() {
		if md.Scheme == "memory" {
			found = true
			assert.Equal(t, "memory", md.Name)
		}
	}
	assert.True(t, found)
}

func TestFilter(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Filter([]string{"a", "b"}, nil))
	assert.Equal(t, []string{"b"}, Filter([]string{"a", "b"}, []string{"b", "c"}))
	assert.Empty(t, Filter([]string{"a"}, []string{"c"}))
}

func TestOrder(t *testing.T) {
	tables := []*internal.RelationalTable{
		{Name: "reservations", Relationships: []internal.ForeignKeyRelationship{
			{SourceColumn: "loft_id", TargetTable: "lofts", TargetColumn: "id"},
			{SourceColumn: "user_id", TargetTable: "users", TargetColumn: "id"},
		}},
		{Name: "lofts", Relationships: []internal.ForeignKeyRelationship{
			{SourceColumn: "owner_id", TargetTable: "users", TargetColumn: "id"},
			{SourceColumn: "region_id", TargetTable: "regions", TargetColumn: "id"},
		}},
		{Name: "users"},
	}
	ordered, err := Order(tables)
	assert.NoError(t, err)
	var names []string
	for _, t := range ordered {
		names = append(names, t.Name)
	}
	assert.Equal(t, []string{"users", "lofts", "reservations"}, names)
}
