package insight

import (
	"errors"
	"fmt"
	"time"
)

// ErrDecoderClosed is returned by Write after Close.
var ErrDecoderClosed = errors.New("decoder closed")

// ErrMissingResponse is the cause of a ParseError for a line without a
// string "response" field.
var ErrMissingResponse = errors.New(`missing string "response" field`)

// ParseError reports a stream line that is not a valid fragment. Line is the
// 1-based line number within the stream.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("insight stream line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StreamError reports a transport failure: the request could not be
// established, the service answered with a non-2xx status, or the body
// failed mid-read.
type StreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *StreamError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("generation service returned status %d: %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("generation service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("insight stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the stream did not complete within the ceiling.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("insight generation exceeded %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
