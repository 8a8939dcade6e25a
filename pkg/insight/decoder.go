package insight

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithFragmentHandler registers fn to observe each fragment as soon as its
// line completes. fn runs on the goroutine calling Write or Close.
func WithFragmentHandler(fn func(Fragment)) DecoderOption {
	return func(d *Decoder) {
		d.onFragment = fn
	}
}

// Decoder reassembles an NDJSON response stream into one text. Chunks may
// split lines anywhere; completed lines are parsed as they arrive and only the
// unterminated tail is buffered. The first bad line or stream failure poisons
// the decoder and no partial text is ever returned.
type Decoder struct {
	pending    []byte
	parts      []string
	line       int
	last       *Fragment
	err        error
	closed     bool
	onFragment func(Fragment)
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Write feeds the next chunk of the stream. It implements io.Writer so a
// response body can be copied straight into the decoder.
func (d *Decoder) Write(chunk []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	if d.closed {
		return 0, ErrDecoderClosed
	}

	d.pending = append(d.pending, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(d.pending[start:], '\n')
		if i < 0 {
			break
		}
		if err := d.consume(d.pending[start : start+i]); err != nil {
			d.fail(err)
			return len(chunk), d.err
		}
		start += i + 1
	}

	// Keep only the unterminated tail.
	d.pending = append(d.pending[:0], d.pending[start:]...)

	return len(chunk), nil
}

// Fail records a stream-error event. The buffered tail is discarded and every
// later call reports err. Errors that are not already a StreamError or
// TimeoutError are wrapped in a StreamError.
func (d *Decoder) Fail(err error) {
	var se *StreamError
	var te *TimeoutError
	if !errors.As(err, &se) && !errors.As(err, &te) {
		err = &StreamError{Err: err}
	}
	d.fail(err)
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
	d.pending = nil
	d.parts = nil
}

// Close marks the end of the stream. A trailing line without a newline is
// parsed as the last line. The joined text is returned on success.
func (d *Decoder) Close() (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if !d.closed {
		d.closed = true
		if len(d.pending) > 0 {
			tail := d.pending
			d.pending = nil
			if err := d.consume(tail); err != nil {
				d.fail(err)
				return "", d.err
			}
		}
	}
	return strings.Join(d.parts, " "), nil
}

// Fragments returns how many fragments have been decoded so far.
func (d *Decoder) Fragments() int {
	return len(d.parts)
}

// Last returns the most recent fragment, which carries the completion
// metadata once the stream is done. Nil before the first fragment.
func (d *Decoder) Last() *Fragment {
	return d.last
}

func (d *Decoder) consume(line []byte) error {
	d.line++

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	// Field lookup is exact; struct decoding would also accept "Response".
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return &ParseError{Line: d.line, Err: err}
	}
	raw, ok := fields["response"]
	if !ok {
		return &ParseError{Line: d.line, Err: ErrMissingResponse}
	}
	var response *string
	if err := json.Unmarshal(raw, &response); err != nil || response == nil {
		return &ParseError{Line: d.line, Err: ErrMissingResponse}
	}

	frag := Fragment{}
	// Metadata is best effort; a malformed optional field does not fail
	// the stream.
	_ = json.Unmarshal(line, &frag)
	frag.Response = *response

	d.parts = append(d.parts, frag.Response)
	d.last = &frag
	if d.onFragment != nil {
		d.onFragment(frag)
	}
	return nil
}

// Drain copies r into the decoder until io.EOF and then closes it. Read
// errors fail the decode as stream errors.
func (d *Decoder) Drain(r io.Reader) (string, error) {
	if _, err := io.Copy(d, r); err != nil {
		if d.err == nil {
			d.Fail(err)
		}
		return "", d.err
	}
	return d.Close()
}

// Decode drains r through a new Decoder.
func Decode(r io.Reader, opts ...DecoderOption) (string, error) {
	return NewDecoder(opts...).Drain(r)
}
