package campaign

import (
	"fmt"
	"io"
	"iter"
	"path/filepath"
	"strings"
)

// Reader yields records lazily in file order. Next returns nil, nil once the
// input is exhausted. A Reader cannot be restarted.
type Reader interface {
	// Header returns the column names, or nil for an empty input.
	Header() []string

	// Next returns the next record.
	Next() (*Record, error)
}

// Format identifies an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks a format from a file name. Unknown extensions are read as CSV.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tsv":
		return FormatTSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// IsSupported reports whether name has an extension the watch loop picks up.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".xlsx":
		return true
	default:
		return false
	}
}

// NewReader opens a Reader for the given format.
func NewReader(r io.Reader, format Format) (Reader, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVReader(r)
	case FormatTSV:
		return NewCSVReader(r, WithDelimiter('\t'))
	case FormatXLSX:
		return NewXLSXReader(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// All adapts a Reader into a range-over-func sequence. Iteration stops after
// the first error.
func All(r Reader) iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := r.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if rec == nil {
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// ReadAll drains r into a slice. The result is never nil.
func ReadAll(r Reader) ([]*Record, error) {
	records := []*Record{}
	for rec, err := range All(r) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Decode reads every record of an export in the given format.
func Decode(r io.Reader, format Format) ([]*Record, error) {
	reader, err := NewReader(r, format)
	if err != nil {
		return nil, err
	}
	if c, ok := reader.(io.Closer); ok {
		defer c.Close()
	}
	return ReadAll(reader)
}

// checkHeader rejects blank and duplicate column names.
func checkHeader(header []string, line int) error {
	seen := make(map[string]int, len(header))
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return &ParseError{Line: line, Column: i + 1, Err: ErrEmptyHeader}
		}
		if _, dup := seen[name]; dup {
			return &ParseError{Line: line, Column: i + 1, Err: fmt.Errorf("%w: %q", ErrDuplicateHeader, name)}
		}
		seen[name] = i
	}
	return nil
}
