// Package file reads and writes snapshots stored as new line delimited JSON files in a directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
)

// RelationshipsFile holds the foreign keys of the snapshot.
const RelationshipsFile = "relationships.json"

type fileDriver struct{}

var _ snapshot.Driver = (*fileDriver)(nil)
var _ snapshot.DriverHelp = (*fileDriver)(nil)

// NewReader returns a reader for the directory of the URL.
func (p *fileDriver) NewReader(config snapshot.Config) (snapshot.Reader, error) {
	dir, err := dirFromURL(config.URL)
	if err != nil {
		return nil, err
	}
	if !util.Exists(dir) {
		return nil, fmt.Errorf("snapshot directory %s does not exist", dir)
	}
	return &reader{logger: config.Logger, dir: dir, tables: config.Tables}, nil
}

// NewWriter returns a writer for the directory of the URL, the directory is created when missing.
func (p *fileDriver) NewWriter(config snapshot.Config) (snapshot.Writer, error) {
	dir, err := dirFromURL(config.URL)
	if err != nil {
		return nil, err
	}
	if !config.DryRun && !util.Exists(dir) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("unable to create directory: %w", err)
		}
	}
	return &writer{logger: config.Logger, dir: dir, dryRun: config.DryRun}, nil
}

// Name is a unique name for the driver.
func (p *fileDriver) Name() string {
	return "File"
}

// Description is the description of the driver.
func (p *fileDriver) Description() string {
	return "Reads and writes one new line delimited JSON file per table from a local directory."
}

// ExampleURL should return an example URL for configuring the driver.
func (p *fileDriver) ExampleURL() string {
	return "file:///var/lib/snapshot"
}

// Help should return a detailed help documentation for the driver.
func (p *fileDriver) Help() string {
	return util.GenerateHelp(
		util.HelpSection{Title: "Tables", Body: "Each table is read from <table>.ndjson, <table>.ndjson.gz or a changefeed export file and written to <table>.ndjson.gz."},
		util.HelpSection{Title: "Relationships", Body: "Foreign keys are declared in " + RelationshipsFile + " as an array of objects with sourceTable, sourceColumn, targetTable and targetColumn."},
	)
}

func dirFromURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("unable to parse url: %w", err)
	}
	dir := u.Host + u.Path
	if dir == "" {
		return "", fmt.Errorf("path is required in url which should be the directory of the snapshot")
	}
	if !filepath.IsAbs(dir) {
		if dir, err = filepath.Abs(dir); err != nil {
			return "", fmt.Errorf("unable to get absolute path for %s: %w", dir, err)
		}
	}
	return dir, nil
}

// tableFromFile returns the table stored in the file. Both <table>.ndjson[.gz] files and CockroachDB
// changefeed exports are recognized.
func tableFromFile(fn string) (string, time.Time, bool) {
	if table, ts, ok := parseExportFile(fn); ok {
		return table, ts, true
	}
	base := filepath.Base(fn)
	for _, ext := range []string{".ndjson.gz", ".ndjson"} {
		if strings.HasSuffix(base, ext) && len(base) > len(ext) {
			return strings.TrimSuffix(base, ext), time.Time{}, true
		}
	}
	return "", time.Time{}, false
}

type reader struct {
	logger logger.Logger
	dir    string
	tables []string
}

var _ snapshot.Reader = (*reader)(nil)

type tableFile struct {
	name string
	ts   time.Time
}

func (r *reader) Read(ctx context.Context) ([]*internal.RelationalTable, error) {
	started := time.Now()
	files, err := listFiles(r.dir)
	if err != nil {
		return nil, fmt.Errorf("unable to list files in directory: %w", err)
	}
	byTable := make(map[string][]tableFile)
	for _, fn := range files {
		table, ts, ok := tableFromFile(fn)
		if !ok {
			if filepath.Base(fn) != RelationshipsFile {
				r.logger.Debug("skipping file: %s", fn)
			}
			continue
		}
		byTable[table] = append(byTable[table], tableFile{fn, ts})
	}
	names := make([]string, 0, len(byTable))
	for name := range byTable {
		names = append(names, name)
	}
	sort.Strings(names)
	names = snapshot.Filter(names, r.tables)

	var total int
	tables := make([]*internal.RelationalTable, 0, len(names))
	index := make(map[string]*internal.RelationalTable, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files := byTable[name]
		sort.SliceStable(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })
		table := &internal.RelationalTable{Name: name}
		tstarted := time.Now()
		for _, f := range files {
			if err := readRows(f.name, table); err != nil {
				return nil, err
			}
		}
		total += len(table.Rows)
		r.logger.Debug("read %d %s records in %s", len(table.Rows), name, time.Since(tstarted))
		tables = append(tables, table)
		index[name] = table
	}

	rels, err := readRelationships(filepath.Join(r.dir, RelationshipsFile))
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		table := index[rel.SourceTable]
		if table == nil {
			r.logger.Debug("skipping relationship %s, table %s is not part of the snapshot", rel, rel.SourceTable)
			continue
		}
		table.Relationships = append(table.Relationships, rel)
	}
	r.logger.Info("read %d records from %d tables in %s", total, len(tables), time.Since(started))
	return tables, nil
}

func readRows(fn string, table *internal.RelationalTable) error {
	dec, err := util.NewNDJSONDecoder(fn)
	if err != nil {
		return fmt.Errorf("unable to create JSON decoder for %s: %w", fn, err)
	}
	defer dec.Close()
	for dec.More() {
		var row internal.Row
		if err := dec.Decode(&row); err != nil {
			return fmt.Errorf("unable to decode JSON in %s at record %d: %w", fn, dec.Count()+1, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return dec.Close()
}

func readRelationships(fn string) ([]internal.ForeignKeyRelationship, error) {
	if !util.Exists(fn) {
		return nil, nil
	}
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("error reading: %s. %w", fn, err)
	}
	var rels []internal.ForeignKeyRelationship
	if err := json.Unmarshal(buf, &rels); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", fn, err)
	}
	return rels, nil
}

func (r *reader) Close() error {
	return nil
}

type writer struct {
	logger logger.Logger
	dir    string
	dryRun bool
}

var _ snapshot.Writer = (*writer)(nil)

func (w *writer) Write(ctx context.Context, tables []*internal.RelationalTable) error {
	started := time.Now()
	ordered, err := snapshot.Order(tables)
	if err != nil {
		return err
	}
	var total int
	var rels []internal.ForeignKeyRelationship
	for _, table := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, rel := range table.Relationships {
			if rel.SourceTable == "" {
				rel.SourceTable = table.Name
			}
			rels = append(rels, rel)
		}
		fn := filepath.Join(w.dir, table.Name+".ndjson.gz")
		if w.dryRun {
			w.logger.Info("[dry-run] would have written %d %s records to %s", len(table.Rows), table.Name, fn)
			continue
		}
		if err := writeRows(fn, table); err != nil {
			return err
		}
		total += len(table.Rows)
		w.logger.Trace("stored %s", fn)
	}
	if len(rels) > 0 && !w.dryRun {
		fn := filepath.Join(w.dir, RelationshipsFile)
		buf, err := json.MarshalIndent(rels, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(fn, buf, 0644); err != nil {
			return fmt.Errorf("unable to write file: %w", err)
		}
	}
	w.logger.Info("wrote %d records from %d tables in %s", total, len(ordered), time.Since(started))
	return nil
}

func writeRows(fn string, table *internal.RelationalTable) error {
	enc, err := util.NewNDJSONEncoder(fn)
	if err != nil {
		return err
	}
	for _, row := range table.Rows {
		if err := enc.Encode(row); err != nil {
			enc.Close()
			return fmt.Errorf("unable to encode %s record %d: %w", table.Name, enc.Count()+1, err)
		}
	}
	return enc.Close()
}

func (w *writer) Close() error {
	return nil
}

func init() {
	snapshot.RegisterDriver("file", &fileDriver{})
}
