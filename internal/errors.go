package internal

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/shopmonkeyus/anonymizer/internal/util"
)

var (
	// ErrConfiguration is matched by every error that makes a run impossible before it starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrDanglingReference is matched when a foreign key value has no identity mapping in its target.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrFieldTransform is matched when a field strategy failed and a fallback value was used.
	ErrFieldTransform = errors.New("field transform failed")
)

// ConfigurationError is a fatal error for the whole run.
type ConfigurationError struct {
	Reason string
}

var _ error = (*ConfigurationError)(nil)

// NewConfigurationError returns a formatted ConfigurationError.
func NewConfigurationError(format string, args ...any) error {
	return errors.WithStackDepth(&ConfigurationError{Reason: fmt.Sprintf(format, args...)}, 1)
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// DanglingReferenceError is returned when a foreign key points at a value that was never assigned an identity mapping.
type DanglingReferenceError struct {
	Table        string
	Column       string
	TargetTable  string
	TargetColumn string
	Value        any
}

var _ error = (*DanglingReferenceError)(nil)

func (e *DanglingReferenceError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("dangling reference: no mapping for %s in %s.%s", util.MaskValue(e.Value), e.TargetTable, e.TargetColumn)
	}
	return fmt.Sprintf("dangling reference: %s.%s value %s has no mapping in %s.%s", e.Table, e.Column, util.MaskValue(e.Value), e.TargetTable, e.TargetColumn)
}

func (e *DanglingReferenceError) Is(target error) bool {
	return target == ErrDanglingReference
}

// FieldTransformError is a recovered failure of a single field strategy.
type FieldTransformError struct {
	Table  string
	Column string
	Type   AnonymizationType
	Cause  error
}

var _ error = (*FieldTransformError)(nil)

func (e *FieldTransformError) Error() string {
	return fmt.Sprintf("%s strategy failed for %s.%s: %s", e.Type, e.Table, e.Column, e.Cause)
}

func (e *FieldTransformError) Is(target error) bool {
	return target == ErrFieldTransform
}

func (e *FieldTransformError) Unwrap() error {
	return e.Cause
}
