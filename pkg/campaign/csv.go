package campaign

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvOptions struct {
	delimiter rune
}

// Option configures a CSVReader.
type Option func(*csvOptions)

// WithDelimiter sets the field separator. Defaults to ','.
func WithDelimiter(delimiter rune) Option {
	return func(o *csvOptions) {
		o.delimiter = delimiter
	}
}

// CSVReader reads delimiter-separated exports with a header row. Quoting is
// strict: a bare quote or an unterminated quoted field is a ParseError.
type CSVReader struct {
	csv    *csv.Reader
	header []string
	row    int
	done   bool
	err    error
}

// NewCSVReader reads the header row from r and returns a reader positioned at
// the first data row. An empty input yields a reader with no header and no
// records.
func NewCSVReader(r io.Reader, opts ...Option) (*CSVReader, error) {
	o := csvOptions{delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}

	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = o.delimiter
	// Width is checked against the header in Next so the error carries
	// both counts.
	cr.FieldsPerRecord = -1

	reader := &CSVReader{csv: cr}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		reader.done = true
		return reader, nil
	}
	if err != nil {
		return nil, toParseError(err)
	}

	line, _ := cr.FieldPos(0)
	if err := checkHeader(header, line); err != nil {
		return nil, err
	}
	reader.header = header

	return reader, nil
}

func (r *CSVReader) Header() []string {
	return r.header
}

func (r *CSVReader) Next() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, nil
	}

	values, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return nil, nil
	}
	if err != nil {
		r.err = toParseError(err)
		return nil, r.err
	}

	line, _ := r.csv.FieldPos(0)
	if len(values) != len(r.header) {
		r.err = &ParseError{
			Line: line,
			Err:  fmt.Errorf("%w: got %d, header has %d", ErrFieldCount, len(values), len(r.header)),
		}
		return nil, r.err
	}

	r.row++
	return NewRecord(r.row, line, r.header, values), nil
}

func toParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Column: csvErr.Column, Err: csvErr.Err}
	}
	return fmt.Errorf("reading export: %w", err)
}
