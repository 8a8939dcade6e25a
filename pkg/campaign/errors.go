package campaign

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHeader is returned when a header cell is blank.
	ErrEmptyHeader = errors.New("empty column name in header")

	// ErrDuplicateHeader is returned when two header cells share a name.
	ErrDuplicateHeader = errors.New("duplicate column name in header")

	// ErrFieldCount is returned when a row's width differs from the header's.
	ErrFieldCount = errors.New("wrong number of fields")
)

// ParseError reports malformed tabular framing. Line is 1-based; Column is the
// 1-based field or byte position when known and 0 otherwise.
type ParseError struct {
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	if e.Column > 0 {
		return fmt.Sprintf("parse error on line %d, column %d: %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
