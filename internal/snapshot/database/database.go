// Package database reads and writes snapshots stored in PostgreSQL and MySQL databases.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/snapshot"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
)

const maxBytesSizeInsert = 5_000_000

type databaseDriver struct {
	dialect     *dialect
	displayName string
	exampleURL  string
	aliases     []string
}

var _ snapshot.Driver = (*databaseDriver)(nil)
var _ snapshot.DriverHelp = (*databaseDriver)(nil)
var _ snapshot.DriverAlias = (*databaseDriver)(nil)

func (p *databaseDriver) connectToDB(ctx context.Context, urlstr string) (*sql.DB, string, error) {
	dsn, schema, err := p.dialect.dsn(urlstr)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(p.dialect.driverName, dsn)
	if err != nil {
		return nil, "", fmt.Errorf("unable to create connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("unable to ping db: %w", err)
	}
	return db, schema, nil
}

// NewReader connects to the database of the URL.
func (p *databaseDriver) NewReader(config snapshot.Config) (snapshot.Reader, error) {
	db, schema, err := p.connectToDB(config.Context, config.URL)
	if err != nil {
		return nil, err
	}
	return newReader(config.Logger, db, p.dialect, schema, config.Tables), nil
}

// NewWriter connects to the database of the URL.
func (p *databaseDriver) NewWriter(config snapshot.Config) (snapshot.Writer, error) {
	db, schema, err := p.connectToDB(config.Context, config.URL)
	if err != nil {
		return nil, err
	}
	return newWriter(config.Logger, db, p.dialect, schema, config.DryRun), nil
}

// Name is a unique name for the driver.
func (p *databaseDriver) Name() string {
	return p.displayName
}

// Description is the description of the driver.
func (p *databaseDriver) Description() string {
	return fmt.Sprintf("Reads every table of a %s schema with its foreign keys and replaces the rows of the target tables.", p.displayName)
}

// ExampleURL should return an example URL for configuring the driver.
func (p *databaseDriver) ExampleURL() string {
	return p.exampleURL
}

// Help should return a detailed help documentation for the driver.
func (p *databaseDriver) Help() string {
	return util.GenerateHelp(
		util.HelpSection{Title: "Schema", Body: "Every base table of the schema named by the URL is read, or of the current schema when none is given."},
		util.HelpSection{Title: "Writing", Body: "The rows of the written tables are deleted and inserted again in a single transaction."},
	)
}

func (p *databaseDriver) Aliases() []string {
	return p.aliases
}

type reader struct {
	logger  logger.Logger
	db      *sql.DB
	dialect *dialect
	schema  string
	tables  []string
}

var _ snapshot.Reader = (*reader)(nil)

func newReader(log logger.Logger, db *sql.DB, d *dialect, schema string, tables []string) *reader {
	return &reader{logger: log, db: db, dialect: d, schema: schema, tables: tables}
}

func (r *reader) resolveSchema(ctx context.Context) (string, error) {
	if r.schema != "" {
		return r.schema, nil
	}
	schema, err := util.GetCurrentDatabase(ctx, r.db, r.dialect.currentSchema)
	if err != nil {
		return "", fmt.Errorf("unable to get the current schema: %w", err)
	}
	r.schema = schema
	return schema, nil
}

func (r *reader) Read(ctx context.Context) ([]*internal.RelationalTable, error) {
	started := time.Now()
	schema, err := r.resolveSchema(ctx)
	if err != nil {
		return nil, err
	}
	dbschema, err := util.BuildDBSchemaFromInfoSchema(ctx, r.db, r.dialect.columnsQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("unable to read the columns of %s: %w", schema, err)
	}
	names := snapshot.Filter(dbschema.Tables(), r.tables)
	var total int
	tables := make([]*internal.RelationalTable, 0, len(names))
	index := make(map[string]*internal.RelationalTable, len(names))
	for _, name := range names {
		tstarted := time.Now()
		table, err := r.readTable(ctx, schema, name, dbschema)
		if err != nil {
			return nil, err
		}
		total += len(table.Rows)
		r.logger.Debug("read %d %s records in %s", len(table.Rows), name, time.Since(tstarted))
		tables = append(tables, table)
		index[name] = table
	}
	rels, err := r.foreignKeys(ctx, schema)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if table := index[rel.SourceTable]; table != nil {
			if index[rel.TargetTable] == nil {
				r.logger.Warn("%s references a table which is not read, its values cannot be remapped", rel)
			}
			table.Relationships = append(table.Relationships, rel)
		}
	}
	r.logger.Info("read %d records from %d tables in %s", total, len(tables), time.Since(started))
	return tables, nil
}

func (r *reader) readTable(ctx context.Context, schema, name string, dbschema util.DatabaseSchema) (*internal.RelationalTable, error) {
	columns := dbschema.Columns(name)
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = r.dialect.quoteIdentifier(c)
	}
	query := "SELECT " + strings.Join(quoted, ", ") + " FROM " + r.dialect.table(schema, name)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	defer rows.Close()
	table := &internal.RelationalTable{Name: name}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("unable to scan %s: %w", name, err)
		}
		row := make(internal.Row, len(columns))
		for i, c := range columns {
			_, dt := dbschema.GetType(name, c)
			row[c] = normalize(values[i], dt)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	return table, nil
}

func (r *reader) foreignKeys(ctx context.Context, schema string) ([]internal.ForeignKeyRelationship, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.foreignKeysQuery, schema)
	if err != nil {
		return nil, fmt.Errorf("unable to read the foreign keys of %s: %w", schema, err)
	}
	defer rows.Close()
	var res []internal.ForeignKeyRelationship
	for rows.Next() {
		var rel internal.ForeignKeyRelationship
		if err := rows.Scan(&rel.SourceTable, &rel.SourceColumn, &rel.TargetTable, &rel.TargetColumn); err != nil {
			return nil, err
		}
		rel.Type = internal.ManyToOne
		res = append(res, rel)
	}
	return res, rows.Err()
}

func (r *reader) Close() error {
	return r.db.Close()
}

type writer struct {
	logger  logger.Logger
	db      *sql.DB
	dialect *dialect
	schema  string
	dryRun  bool
}

var _ snapshot.Writer = (*writer)(nil)

func newWriter(log logger.Logger, db *sql.DB, d *dialect, schema string, dryRun bool) *writer {
	return &writer{logger: log, db: db, dialect: d, schema: schema, dryRun: dryRun}
}

// Write replaces the rows of every table in a single transaction. Rows are deleted from the referencing
// tables first and inserted into the referenced tables first.
func (w *writer) Write(ctx context.Context, tables []*internal.RelationalTable) error {
	started := time.Now()
	ordered, err := snapshot.Order(tables)
	if err != nil {
		return err
	}
	var execer util.Execer = w.db
	var tx *sql.Tx
	if !w.dryRun {
		tx, err = w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("unable to start transaction: %w", err)
		}
		execer = tx
	}
	var success bool
	defer func() {
		if tx != nil && !success {
			tx.Rollback()
		}
	}()
	executor := util.SQLExecuter(ctx, w.logger, execer, w.dryRun)
	if err := executor(w.dialect.preamble); err != nil {
		return fmt.Errorf("unable to prepare transaction: %w", err)
	}
	for i := len(ordered) - 1; i >= 0; i-- {
		if err := executor("DELETE FROM " + w.dialect.table(w.schema, ordered[i].Name)); err != nil {
			return fmt.Errorf("unable to delete rows of %s: %w", ordered[i].Name, err)
		}
	}
	var total int
	for _, table := range ordered {
		tstarted := time.Now()
		for _, stmt := range w.inserts(table) {
			if err := executor(stmt); err != nil {
				w.logger.Trace("offending sql: %s", util.AbbreviateSQL(stmt))
				return fmt.Errorf("unable to insert rows of %s: %w", table.Name, err)
			}
		}
		total += len(table.Rows)
		w.logger.Debug("wrote %d %s records in %s", len(table.Rows), table.Name, time.Since(tstarted))
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("unable to commit transaction: %w", err)
		}
	}
	success = true
	w.logger.Info("wrote %d records from %d tables in %s", total, len(ordered), time.Since(started))
	return nil
}

// inserts returns the insert statements of the table, each one below maxBytesSizeInsert unless a single
// row is larger.
func (w *writer) inserts(table *internal.RelationalTable) []string {
	if len(table.Rows) == 0 {
		return nil
	}
	columns := table.Columns()
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = w.dialect.quoteIdentifier(c)
	}
	prefix := "INSERT INTO " + w.dialect.table(w.schema, table.Name) + " (" + strings.Join(quoted, ", ") + ") VALUES "
	var res []string
	var sql strings.Builder
	for _, row := range table.Rows {
		vals := make([]string, len(columns))
		for i, c := range columns {
			vals[i] = w.dialect.quoteValue(row[c])
		}
		tuple := "(" + strings.Join(vals, ", ") + ")"
		if sql.Len() > 0 && sql.Len()+len(tuple)+2 > maxBytesSizeInsert {
			res = append(res, sql.String())
			sql.Reset()
		}
		if sql.Len() == 0 {
			sql.WriteString(prefix)
		} else {
			sql.WriteString(", ")
		}
		sql.WriteString(tuple)
	}
	res = append(res, sql.String())
	return res
}

func (w *writer) Close() error {
	return w.db.Close()
}

func init() {
	snapshot.RegisterDriver("postgres", &databaseDriver{
		dialect:     postgres,
		displayName: "PostgreSQL",
		exampleURL:  "postgres://localhost:5432/database?schema=public",
		aliases:     []string{"postgresql"},
	})
	snapshot.RegisterDriver("mysql", &databaseDriver{
		dialect:     mysql,
		displayName: "MySQL",
		exampleURL:  "mysql://localhost:3306/database",
	})
}
