// Package campaign decodes advertising campaign exports into ordered records.
package campaign

import (
	"bytes"
	"encoding/json"
)

// Columns consumed by the metrics aggregator. Every other column is carried
// through untouched.
const (
	ColumnConversions = "Conversions"
	ColumnAmountSpent = "Amount Spent"
)

// Record is one data row of an export. Values stay raw strings and keep the
// header's column order.
type Record struct {
	// Row is the 1-based index of the data row, not counting the header.
	Row int

	// Line is the source line (CSV/TSV) or sheet row (XLSX) the record started on.
	Line int

	header []string
	values []string
}

// NewRecord builds a record. values must have the same length as header.
func NewRecord(row, line int, header, values []string) *Record {
	return &Record{
		Row:    row,
		Line:   line,
		header: header,
		values: values,
	}
}

// Get returns the raw value for column and whether the column exists.
func (r *Record) Get(column string) (string, bool) {
	for i, name := range r.header {
		if name == column {
			return r.values[i], true
		}
	}
	return "", false
}

// Columns returns the header names in file order.
func (r *Record) Columns() []string {
	return r.header
}

// Values returns the raw values in column order.
func (r *Record) Values() []string {
	return r.values
}

// Map returns a copy of the record as a plain map. Column order is lost.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.header))
	for i, name := range r.header {
		m[name] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as a JSON object whose keys follow the
// header order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for i, name := range r.header {
		if i > 0 {
			out.WriteByte(',')
		}
		if err := writeJSONString(&out, name); err != nil {
			return nil, err
		}
		out.WriteByte(':')
		if err := writeJSONString(&out, r.values[i]); err != nil {
			return nil, err
		}
	}
	out.WriteByte('}')

	return out.Bytes(), nil
}

// writeJSONString appends s as a JSON string without HTML escaping.
func writeJSONString(out *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return nil
}
