// Package csvtable reads and writes CSV files as ordered rows keyed by
// column name.
package csvtable

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/newtron-network/merakiops/pkg/util"
)

const bom = "\ufeff"

// Row maps column name to cell text, remembering insertion order.
type Row = orderedmap.OrderedMap[string, string]

// NewRow returns an empty row.
func NewRow() *Row {
	return orderedmap.New[string, string]()
}

// RowOf builds a row from alternating column/value pairs.
func RowOf(kv ...string) *Row {
	r := NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// Table is the result of Read.
type Table struct {
	// Header holds the normalized column names in file order.
	Header []string
	Rows   []*Row
}

// MissingColumnError reports a required column absent from a CSV header.
type MissingColumnError struct {
	Path     string
	Column   string
	Observed []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: missing expected column %q; found columns: [%s]",
		e.Path, e.Column, strings.Join(e.Observed, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return util.ErrMissingColumn
}

// Columns returns the header for rows: the first row's columns in order,
// then any column first seen in a later row, in encounter order.
func Columns(rows []*Row) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, r := range rows {
		for pair := r.Oldest(); pair != nil; pair = pair.Next() {
			if !seen[pair.Key] {
				seen[pair.Key] = true
				cols = append(cols, pair.Key)
			}
		}
	}
	return cols
}

// Write writes rows to path with the header from Columns. A row missing a
// column gets an empty cell. Zero rows is an error: nothing is written.
func Write(path string, rows []*Row) (err error) {
	if len(rows) == 0 {
		return fmt.Errorf("%s: %w: refusing to write a file with no rows", path, util.ErrEmptyData)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return bw.Flush()
}

// Encode writes rows as CSV to w.
func Encode(w io.Writer, rows []*Row) error {
	cols := Columns(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		for i, col := range cols {
			record[i], _ = r.Get(col)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadOptions controls Read.
type ReadOptions struct {
	// Required columns must appear in the header (after BOM and whitespace
	// stripping). Matching is exact first, then case-insensitive; a
	// case-insensitive match is renamed to the required spelling.
	Required []string

	// Key names a column whose empty cells cause the row to be dropped.
	Key string
}

// Read loads a CSV file.
func Read(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Decode(f, opts)
	if err != nil {
		if mc, ok := err.(*MissingColumnError); ok {
			mc.Path = path
			return nil, mc
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// Decode parses CSV from r.
func Decode(r io.Reader, opts ReadOptions) (*Table, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(bom)); err == nil && string(lead) == bom {
		br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	raw, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: CSV has no header row", util.ErrEmptyData)
	}
	if err != nil {
		return nil, err
	}

	header := make([]string, len(raw))
	for i, h := range raw {
		header[i] = normalizeHeader(h)
	}
	if err := matchRequired(header, opts.Required); err != nil {
		return nil, err
	}

	t := &Table{Header: header}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		row := NewRow()
		for i, col := range header {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			row.Set(col, cell)
		}
		if opts.Key != "" {
			if v, _ := row.Get(opts.Key); strings.TrimSpace(v) == "" {
				continue
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(h), bom))
}

// matchRequired checks required columns against header, renaming
// case-insensitive matches in place.
func matchRequired(header, required []string) error {
	for _, want := range required {
		idx := -1
		for i, h := range header {
			if h == want {
				idx = i
				break
			}
		}
		if idx < 0 {
			for i, h := range header {
				if strings.EqualFold(h, want) {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			observed := make([]string, len(header))
			copy(observed, header)
			return &MissingColumnError{Column: want, Observed: observed}
		}
		header[idx] = want
	}
	return nil
}
