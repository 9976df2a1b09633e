package transform

import (
	"errors"
	"fmt"
)

var (
	ErrParse     = errors.New("transform: parse error")
	ErrSchema    = errors.New("transform: schema error")
	ErrSerialize = errors.New("transform: serialization error")
)

// ParseError reports a record that is not a well-formed JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transform: parse record: %v", e.Err)
}
func (e *ParseError) Unwrap() error        { return e.Err }
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// SchemaError reports a required field that is missing or has the wrong shape.
type SchemaError struct {
	Field  string // dotted path, e.g. "metadata.time"
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("transform: field %q: %s", e.Field, e.Reason)
}
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func missing(field string) *SchemaError {
	return &SchemaError{Field: field, Reason: "missing required field"}
}

// SerializationError reports output that could not be encoded.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("transform: encode output: %v", e.Err)
}
func (e *SerializationError) Unwrap() error        { return e.Err }
func (e *SerializationError) Is(target error) bool { return target == ErrSerialize }

// IsTerminal reports whether err is a record-level failure that a retry of
// the same record cannot fix.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrParse) || errors.Is(err, ErrSchema) || errors.Is(err, ErrSerialize)
}
