// Package anonymizer classifies and replaces individual field values.
package anonymizer

import (
	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal"
	"github.com/shopmonkeyus/anonymizer/internal/faker"
	"github.com/shopmonkeyus/anonymizer/internal/util"
	"github.com/shopmonkeyus/go-common/logger"
)

// FieldConfig identifies the field being replaced. A zero Type means the kind is inferred from the column.
type FieldConfig struct {
	TableName  string
	ColumnName string
	Type       Kind
}

// Result is the replacement value of a field.
type Result struct {
	Value any
	Kind  Kind

	// Fallback is true when the strategy failed and a generic value was used.
	Fallback bool
}

// Engine replaces field values. It holds no state besides the generator and is safe for concurrent use.
type Engine struct {
	logger logger.Logger
	gen    *faker.Generator
	config *internal.AnonymizationConfig
}

// New returns an engine for the configuration.
func New(logger logger.Logger, gen *faker.Generator, config *internal.AnonymizationConfig) *Engine {
	return &Engine{
		logger: logger.WithPrefix("[anonymizer]"),
		gen:    gen,
		config: config,
	}
}

// Generator returns the fake data generator of the engine.
func (e *Engine) Generator() *faker.Generator {
	return e.gen
}

// Config returns the configuration of the engine.
func (e *Engine) Config() *internal.AnonymizationConfig {
	return e.config
}

// AnonymizeValue returns the replacement of original. When the strategy of the field fails the result carries
// a generic replacement of the same primitive type and the error is a *internal.FieldTransformError. A
// financial column whose range has no value at the precision of the original falls back to a value within
// the range at a finer precision.
func (e *Engine) AnonymizeValue(original any, field FieldConfig, actx internal.AnonymizationContext) (Result, error) {
	kind := field.Type
	if kind == Unknown {
		kind = e.Classify(field.TableName, field.ColumnName)
	}
	if original == nil {
		return Result{Kind: kind}, nil
	}
	value, err := e.apply(kind, original, field, actx)
	if err == nil {
		return Result{Value: value, Kind: kind}, nil
	}
	ferr := &internal.FieldTransformError{
		Table:  field.TableName,
		Column: field.ColumnName,
		Type:   kind.AnonymizationType(),
		Cause:  err,
	}
	var rf *rangeFallbackError
	if errors.As(err, &rf) {
		return Result{Value: rf.value, Kind: kind, Fallback: true}, ferr
	}
	fallback, gerr := e.gen.Generate(faker.PrimitiveOf(original), original, actx, faker.Options{})
	if gerr != nil {
		e.logger.Debug("fallback for %s.%s failed: %s", field.TableName, field.ColumnName, gerr)
		fallback = nil
	}
	return Result{Value: fallback, Kind: kind, Fallback: true}, ferr
}

func (e *Engine) apply(kind Kind, original any, field FieldConfig, actx internal.AnonymizationContext) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(util.PanicError(r), "%s strategy", kind)
		}
	}()
	switch kind {
	case Email:
		return e.email(original, actx)
	case Phone:
		return e.phone(original, actx)
	case Name:
		return e.name(original, field.ColumnName, actx)
	case Address:
		return e.address(original, field.ColumnName, actx)
	case Financial:
		return e.financial(original, field.ColumnName)
	}
	return e.generic(original, actx)
}
