package internal

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrorKind is the category of a RunError.
type ErrorKind string

const (
	ErrorKindConfiguration     ErrorKind = "configuration"
	ErrorKindDanglingReference ErrorKind = "dangling_reference"
	ErrorKindFieldTransform    ErrorKind = "field_transform"
)

// RunError is one error collected during a run.
type RunError struct {
	Kind      ErrorKind `json:"kind" msgpack:"kind"`
	Table     string    `json:"table,omitempty" msgpack:"table"`
	RowIndex  int       `json:"rowIndex" msgpack:"rowIndex"`
	RowID     any       `json:"rowId,omitempty" msgpack:"rowId"`
	Column    string    `json:"column,omitempty" msgpack:"column"`
	Message   string    `json:"message" msgpack:"message"`
	Recovered bool      `json:"recovered" msgpack:"recovered"`
}

func (e RunError) String() string {
	if e.Table == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s.%s row %d: %s", e.Kind, e.Table, e.Column, e.RowIndex, e.Message)
}

// NewRunError classifies err into a RunError.
func NewRunError(table string, rowIndex int, rowID any, column string, err error) RunError {
	re := RunError{
		Table:    table,
		RowIndex: rowIndex,
		RowID:    rowID,
		Column:   column,
		Message:  err.Error(),
	}
	switch {
	case errors.Is(err, ErrConfiguration):
		re.Kind = ErrorKindConfiguration
		re.RowIndex = -1
	case errors.Is(err, ErrDanglingReference):
		re.Kind = ErrorKindDanglingReference
	default:
		re.Kind = ErrorKindFieldTransform
		re.Recovered = true
	}
	return re
}

// TableResult are the counters of a single table.
type TableResult struct {
	Name     string        `json:"name" msgpack:"name"`
	Rows     int           `json:"rows" msgpack:"rows"`
	Fields   int           `json:"fields" msgpack:"fields"`
	Remapped int           `json:"remapped" msgpack:"remapped"` // foreign key values rewritten
	Failed   bool          `json:"failed" msgpack:"failed"`
	Duration time.Duration `json:"duration" msgpack:"duration"`
}

// RelationshipStats are the relationship counters of a run.
type RelationshipStats struct {
	Relationships       int `json:"relationships" msgpack:"relationships"`
	IdentityColumns     int `json:"identityColumns" msgpack:"identityColumns"`
	IdentifiersRemapped int `json:"identifiersRemapped" msgpack:"identifiersRemapped"`
	ReferencesRewritten int `json:"referencesRewritten" msgpack:"referencesRewritten"`
	DanglingReferences  int `json:"danglingReferences" msgpack:"danglingReferences"`
}

// RunResult is the outcome of one anonymization run. Success is false when the output should not be trusted
// as a complete anonymization.
type RunResult struct {
	RunID             string            `json:"runId" msgpack:"runId"`
	Started           time.Time         `json:"started" msgpack:"started"`
	Success           bool              `json:"success" msgpack:"success"`
	ProcessedTables   int               `json:"processedTables" msgpack:"processedTables"`
	ExcludedTables    []string          `json:"excludedTables,omitempty" msgpack:"excludedTables"`
	SkippedTables     []string          `json:"skippedTables,omitempty" msgpack:"skippedTables"`
	Partial           bool              `json:"partial" msgpack:"partial"`
	Tables            []TableResult     `json:"tables" msgpack:"tables"`
	Duration          time.Duration     `json:"duration" msgpack:"duration"`
	RelationshipStats RelationshipStats `json:"relationshipStats" msgpack:"relationshipStats"`
	Errors            []RunError        `json:"errors,omitempty" msgpack:"errors"`
}

// Table returns the result of the named table.
func (r *RunResult) Table(name string) (TableResult, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableResult{}, false
}

// ErrorsOf returns the errors of the given kind.
func (r *RunResult) ErrorsOf(kind ErrorKind) []RunError {
	var res []RunError
	for _, e := range r.Errors {
		if e.Kind == kind {
			res = append(res, e)
		}
	}
	return res
}
