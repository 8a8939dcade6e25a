package campaign

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first worksheet of a spreadsheet export. The first
// non-blank row is the header. Rows are streamed from the sheet.
type XLSXReader struct {
	file     *excelize.File
	rows     *excelize.Rows
	header   []string
	sheetRow int
	row      int
	done     bool
	err      error
}

// NewXLSXReader opens a workbook from r and reads its header row.
func NewXLSXReader(r io.Reader) (*XLSXReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("opening workbook: %w", err)}
	}

	reader := &XLSXReader{file: f}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		reader.done = true
		return reader, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, &ParseError{Err: fmt.Errorf("reading sheet %q: %w", sheets[0], err)}
	}
	reader.rows = rows

	header, err := reader.nextRow()
	if err != nil {
		_ = reader.Close()
		return nil, err
	}
	if header == nil {
		reader.done = true
		return reader, nil
	}
	if err := checkHeader(header, reader.sheetRow); err != nil {
		_ = reader.Close()
		return nil, err
	}
	reader.header = header

	return reader, nil
}

func (r *XLSXReader) Header() []string {
	return r.header
}

func (r *XLSXReader) Next() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, nil
	}

	cells, err := r.nextRow()
	if err != nil {
		r.err = err
		return nil, err
	}
	if cells == nil {
		r.done = true
		return nil, nil
	}

	if len(cells) > len(r.header) {
		r.err = &ParseError{
			Line: r.sheetRow,
			Err:  fmt.Errorf("%w: got %d, header has %d", ErrFieldCount, len(cells), len(r.header)),
		}
		return nil, r.err
	}

	// Spreadsheets drop trailing blank cells.
	values := make([]string, len(r.header))
	copy(values, cells)

	r.row++
	return NewRecord(r.row, r.sheetRow, r.header, values), nil
}

// nextRow returns the next non-blank row, or nil at the end of the sheet.
func (r *XLSXReader) nextRow() ([]string, error) {
	if r.rows == nil {
		return nil, nil
	}

	for r.rows.Next() {
		r.sheetRow++
		cells, err := r.rows.Columns()
		if err != nil {
			return nil, &ParseError{Line: r.sheetRow, Err: err}
		}
		if blankRow(cells) {
			continue
		}
		return cells, nil
	}
	if err := r.rows.Error(); err != nil {
		return nil, &ParseError{Line: r.sheetRow, Err: err}
	}
	return nil, nil
}

// Close releases the workbook.
func (r *XLSXReader) Close() error {
	if r.rows != nil {
		_ = r.rows.Close()
	}
	return r.file.Close()
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
