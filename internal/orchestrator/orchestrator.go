// Package orchestrator drives an anonymization run over a relational snapshot.
package orchestrator

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/anonymizer"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
	"github.com/shopmonkeyus/anonymizer/internal/relationship"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
	"golang.org/x/sync/errgroup"
)

// Config is the configuration of an orchestrator.
type Config struct {
	Logger logger.Logger

	// Config is the anonymization configuration, it defaults to the configuration of Engine.
	Config *internal.AnonymizationConfig

	// Engine is optional, one is created from Config when nil.
	Engine *anonymizer.Engine

	// Relationships is optional. Identity mappings are scoped to one run so a manager passed here must not be
	// reused for another run. A new manager is created for every run when nil.
	Relationships *relationship.Manager
}

// Orchestrator runs the identity pass and the field pass over a dataset.
type Orchestrator struct {
	logger        logger.Logger
	config        *internal.AnonymizationConfig
	engine        *anonymizer.Engine
	relationships *relationship.Manager
}

// New returns an orchestrator.
func New(config Config) (*Orchestrator, error) {
	if config.Logger == nil {
		return nil, errors.New("logger is required")
	}
	cfg := config.Config
	if cfg == nil && config.Engine != nil {
		cfg = config.Engine.Config()
	}
	if cfg == nil {
		return nil, errors.New("anonymization config is required")
	}
	engine := config.Engine
	if engine == nil {
		engine = anonymizer.New(config.Logger, faker.New(cfg.Seed), cfg)
	}
	return &Orchestrator{
		logger:        config.Logger.WithPrefix("[orchestrator]"),
		config:        cfg,
		engine:        engine,
		relationships: config.Relationships,
	}, nil
}

type columnRole int

const (
	roleEngine columnRole = iota
	roleExcluded
	roleReference
	roleIdentity
)

type column struct {
	anonymizer.ColumnPlan
	role   columnRole
	target internal.ColumnKey
}

type run struct {
	result  *internal.RunResult
	manager *relationship.Manager
	order   []internal.TableDependency
	tables  map[string]*internal.RelationalTable
	rels    []internal.ForeignKeyRelationship
	mu      sync.Mutex
}

func (r *run) fail(err error) (*internal.RunResult, error) {
	r.result.Success = false
	r.result.Errors = append(r.result.Errors, internal.NewRunError("", -1, nil, "", err))
	r.result.Duration = time.Since(r.result.Started)
	return r.result, err
}

// AnonymizeDataset anonymizes the tables in place and returns the result of the run. Only a configuration
// error is returned as an error, in which case no row has been modified. Every other failure is collected in
// the result.
func (o *Orchestrator) AnonymizeDataset(ctx context.Context, tables []*internal.RelationalTable) (*internal.RunResult, error) {
	r := &run{
		result: &internal.RunResult{
			RunID:   uuid.NewString(),
			Started: time.Now(),
			Success: true,
		},
		manager: o.relationships,
	}
	if r.manager == nil {
		r.manager = relationship.New(o.logger, o.engine.Generator())
	}
	if err := o.prepare(r, tables); err != nil {
		o.logger.Error("invalid configuration: %s", err)
		return r.fail(err)
	}

	if o.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Deadline)
		defer cancel()
	}

	if o.config.PreserveRelationships {
		if err := o.identityPass(r); err != nil {
			return r.fail(err)
		}
	}
	o.fieldPass(ctx, r)

	stats := r.manager.Stats()
	r.result.RelationshipStats = internal.RelationshipStats{
		Relationships:       stats.Relationships,
		IdentityColumns:     stats.IdentityColumns,
		IdentifiersRemapped: stats.IdentifiersRemapped,
		ReferencesRewritten: stats.ReferencesRewritten,
		DanglingReferences:  len(r.result.ErrorsOf(internal.ErrorKindDanglingReference)),
	}
	r.result.Duration = time.Since(r.result.Started)
	internal.RecordRun(r.result)
	o.logSummary(r.result)
	return r.result, nil
}

// prepare validates the dataset and the configuration, computes the processing order and registers the
// relationships. It does not touch any row.
func (o *Orchestrator) prepare(r *run, tables []*internal.RelationalTable) error {
	if err := o.config.Validate(); err != nil {
		return err
	}
	r.tables = make(map[string]*internal.RelationalTable, len(tables))
	names := make([]string, 0, len(tables))
	rels := append([]internal.ForeignKeyRelationship(nil), o.config.Relationships...)
	for _, t := range tables {
		if t == nil || t.Name == "" {
			return internal.NewConfigurationError("table without a name")
		}
		if _, ok := r.tables[t.Name]; ok {
			return internal.NewConfigurationError("table %s appears more than once", t.Name)
		}
		r.tables[t.Name] = t
		names = append(names, t.Name)
		for _, rel := range t.Relationships {
			if rel.SourceTable == "" {
				rel.SourceTable = t.Name
			}
			if rel.SourceTable != t.Name {
				return internal.NewConfigurationError("table %s declares a relationship from %s", t.Name, rel.SourceTable)
			}
			rels = append(rels, rel)
		}
	}
	var err error
	if r.rels, err = internal.ValidateRelationships(rels); err != nil {
		return err
	}
	if r.order, err = internal.ProcessingOrder(names, r.rels); err != nil {
		return err
	}
	if o.config.PreserveRelationships {
		if err := r.manager.RegisterRelationships(r.rels...); err != nil {
			return err
		}
	}
	o.logger.Debug("processing order: %s", orderString(r.order))
	return nil
}

func orderString(order []internal.TableDependency) string {
	names := make([]string, len(order))
	for i, d := range order {
		names[i] = d.Table
	}
	return strings.Join(names, ", ")
}

// available returns the table if it is part of the dataset and is anonymized.
func (o *Orchestrator) available(r *run, name string) (*internal.RelationalTable, bool) {
	t, ok := r.tables[name]
	if !ok || o.config.IsTableExcluded(name) {
		return nil, false
	}
	return t, true
}

// identityPass creates the identity mapping of every referenced column before any reference is rewritten.
// A referenced column which is itself a reference resolves through the column it points to.
func (o *Orchestrator) identityPass(r *run) error {
	started := time.Now()
	var keys []internal.ColumnKey
	for _, key := range r.manager.IdentityColumns() {
		if _, ok := o.available(r, key.Table); !ok {
			o.logger.Warn("%s is referenced but its table is not anonymized, references to it will dangle", key)
			continue
		}
		if upstream, ok := r.manager.RelationshipFor(key.Table, key.Column); ok {
			if _, ok := o.available(r, upstream.TargetTable); ok {
				if err := r.manager.Alias(key.Table, key.Column, upstream.TargetTable, upstream.TargetColumn); err != nil {
					return err
				}
				continue
			}
		}
		keys = append(keys, key)
	}

	var g errgroup.Group
	g.SetLimit(o.parallelism())
	for _, key := range keys {
		table, _ := o.available(r, key.Table)
		g.Go(func() error {
			mapping, err := r.manager.CreateIdMapping(key.Table, key.Column, table.Values(key.Column))
			if err != nil {
				return err
			}
			o.logger.Trace("mapped %d identifiers of %s", mapping.Len(), key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	o.logger.Debug("identity pass for %d columns completed in %s", len(keys), time.Since(started))
	return nil
}

func (o *Orchestrator) parallelism() int {
	if o.config.Parallelism > 0 {
		return o.config.Parallelism
	}
	return runtime.NumCPU()
}

// fieldPass anonymizes every table in processing order. Tables which have not started when the context is
// done are reported as skipped.
func (o *Orchestrator) fieldPass(ctx context.Context, r *run) {
	results := make([]*internal.TableResult, len(r.order))
	var g errgroup.Group
	g.SetLimit(o.parallelism())
	for i, dep := range r.order {
		table := r.tables[dep.Table]
		if o.config.IsTableExcluded(table.Name) {
			r.result.ExcludedTables = append(r.result.ExcludedTables, table.Name)
			o.logger.Debug("skipping excluded table %s", table.Name)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				r.mu.Lock()
				r.result.SkippedTables = append(r.result.SkippedTables, table.Name)
				r.mu.Unlock()
				return nil
			}
			tr, errs := o.anonymizeTable(r, table)
			results[i] = &tr
			r.mu.Lock()
			r.result.Errors = append(r.result.Errors, errs...)
			r.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, tr := range results {
		if tr == nil {
			continue
		}
		r.result.Tables = append(r.result.Tables, *tr)
		r.result.ProcessedTables++
		if tr.Failed {
			r.result.Success = false
		}
	}
	if len(r.result.SkippedTables) > 0 {
		sort.Strings(r.result.SkippedTables)
		r.result.Partial = true
		r.result.Success = false
		o.logger.Warn("deadline reached, skipped %d tables: %s", len(r.result.SkippedTables), strings.Join(r.result.SkippedTables, ", "))
	}
	sort.SliceStable(r.result.Errors, func(i, j int) bool {
		a, b := r.result.Errors[i], r.result.Errors[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		return a.RowIndex < b.RowIndex
	})
}

// columns returns the plan of the table with the role of every column.
func (o *Orchestrator) columns(r *run, table *internal.RelationalTable) []column {
	plan := o.engine.Plan(table.Name, table.Columns())
	res := make([]column, len(plan))
	for i, p := range plan {
		c := column{ColumnPlan: p}
		if o.config.PreserveRelationships {
			// foreign keys are rewritten even when excluded
			if rel, ok := r.manager.RelationshipFor(table.Name, p.Column); ok {
				c.role = roleReference
				c.target = rel.Target()
				res[i] = c
				continue
			}
		}
		switch {
		case o.config.IsColumnExcluded(p.Column):
			c.role = roleExcluded
		case !o.config.PreserveRelationships:
			c.role = roleEngine
		case r.manager.IsIdentityColumn(table.Name, p.Column):
			c.role = roleIdentity
			c.target = internal.ColumnKey{Table: table.Name, Column: p.Column}
		}
		res[i] = c
	}
	return res
}

func rowID(row internal.Row) any {
	if v, ok := row["id"]; ok {
		return v
	}
	return nil
}

func (o *Orchestrator) anonymizeTable(r *run, table *internal.RelationalTable) (tr internal.TableResult, errs []internal.RunError) {
	started := time.Now()
	tr.Name = table.Name
	tr.Rows = len(table.Rows)
	defer func() {
		if rec := recover(); rec != nil {
			err := util.PanicError(rec)
			tr.Failed = true
			errs = append(errs, internal.RunError{
				Kind:     internal.ErrorKindFieldTransform,
				Table:    table.Name,
				RowIndex: -1,
				Message:  err.Error(),
			})
			o.logger.Error("panic anonymizing %s: %+v", table.Name, err)
		}
		tr.Duration = time.Since(started)
	}()

	columns := o.columns(r, table)
	for idx, row := range table.Rows {
		out := make(internal.Row, len(row))
		for _, c := range columns {
			if c.role == roleExcluded {
				if v, ok := row[c.Column]; ok {
					out[c.Column] = v
				}
			}
		}
		for _, c := range columns {
			original, ok := row[c.Column]
			if !ok || c.role == roleExcluded {
				continue
			}
			switch c.role {
			case roleIdentity:
				if v, ok := r.manager.Identifier(c.target.Table, c.target.Column, original); ok {
					out[c.Column] = v
					continue
				}
				fallthrough
			case roleReference:
				if original == nil {
					out[c.Column] = nil
					continue
				}
				v, err := r.manager.Lookup(c.target.Table, c.target.Column, original)
				if err != nil {
					var de *internal.DanglingReferenceError
					if errors.As(err, &de) {
						de.Table, de.Column = table.Name, c.Column
					}
					errs = append(errs, internal.NewRunError(table.Name, idx, rowID(row), c.Column, err))
					out[c.Column] = original
					tr.Failed = true
					continue
				}
				out[c.Column] = v
				if c.role == roleReference {
					tr.Remapped++
				}
			default:
				res, err := o.engine.AnonymizeValue(original, anonymizer.FieldConfig{
					TableName:  table.Name,
					ColumnName: c.Column,
					Type:       c.Kind,
				}, internal.AnonymizationContext{
					TableName:             table.Name,
					ColumnName:            c.Column,
					OriginalValue:         original,
					RowData:               row,
					Siblings:              out,
					PreserveRelationships: o.config.PreserveRelationships,
					GenerateRealisticData: o.config.GenerateRealisticData,
				})
				if err != nil {
					errs = append(errs, internal.NewRunError(table.Name, idx, rowID(row), c.Column, err))
				}
				out[c.Column] = res.Value
				tr.Fields++
			}
		}
		for k, v := range out {
			row[k] = v
		}
	}
	if tr.Failed {
		o.logger.Warn("anonymized %d %s records with %d errors in %s", tr.Rows, table.Name, len(errs), time.Since(started))
	} else {
		o.logger.Debug("anonymized %d %s records in %s", tr.Rows, table.Name, time.Since(started))
	}
	return tr, errs
}

func (o *Orchestrator) logSummary(result *internal.RunResult) {
	var rows int
	for _, t := range result.Tables {
		rows += t.Rows
	}
	o.logger.Info("run %s anonymized %d records in %d tables in %s (success=%v, %d errors, %d identifiers remapped)",
		result.RunID, rows, result.ProcessedTables, result.Duration, result.Success, len(result.Errors), result.RelationshipStats.IdentifiersRemapped)
}
