package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when a record has no column the
	// aggregator reads.
	ErrMissingField = errors.New("missing field")

	// ErrNotInteger is returned for conversion counts that are not whole numbers.
	ErrNotInteger = errors.New("not an integer")

	// ErrMissingCurrency is returned for amounts without the leading "$".
	ErrMissingCurrency = errors.New(`missing "$" prefix`)

	// ErrNotDecimal is returned for amounts whose digits do not parse.
	ErrNotDecimal = errors.New("not a decimal amount")

	// ErrOverflow is returned when the conversion total leaves the int64 range.
	ErrOverflow = errors.New("conversion total overflows")
)

// ValidationError reports the first record value the aggregator could not use.
type ValidationError struct {
	Row   int
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrMissingField) {
		return fmt.Sprintf("row %d (line %d): %v %q", e.Row, e.Line, e.Err, e.Field)
	}
	return fmt.Sprintf("row %d (line %d): invalid %q value %q: %v", e.Row, e.Line, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
