// Package table reads uploaded spreadsheets into records and writes records
// back out as spreadsheets.
package table

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kartoza/goodspeed/internal/record"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Sheet is a header row plus one record per data row
type Sheet struct {
	Header  []string
	Records []record.Record
}

// FormatOf returns the table format implied by a file name
func FormatOf(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}

// Read parses r according to the extension of name
func Read(name string, r io.Reader) (*Sheet, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// Write serializes s in the given format
func (s *Sheet) Write(format string, w io.Writer) error {
	switch format {
	case FormatXLSX:
		return s.WriteXLSX(w)
	case FormatCSV:
		return s.WriteCSV(w)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// FromRecords builds a sheet whose header is the union of record fields in
// first seen order.
func FromRecords(records []record.Record) *Sheet {
	s := &Sheet{Records: records}
	seen := make(map[string]bool)
	for _, r := range records {
		for _, field := range r.Fields() {
			if !seen[field] {
				seen[field] = true
				s.Header = append(s.Header, field)
			}
		}
	}
	return s
}

// fromRows turns raw text rows into a sheet. The first row is the header.
// Blank header cells are named "Unnamed: <index>" and repeated names get a
// ".<n>" suffix. Rows with no values are skipped.
func fromRows(rows [][]string) (*Sheet, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet is empty")
	}

	header := normalizeHeader(rows[0])
	s := &Sheet{Header: header}
	for n, row := range rows[1:] {
		if len(row) > len(header) {
			for _, cell := range row[len(header):] {
				if strings.TrimSpace(cell) != "" {
					return nil, fmt.Errorf("row %d has more cells than the header", n+2)
				}
			}
		}

		r := record.New()
		blank := true
		for i, field := range header {
			v := record.Missing()
			if i < len(row) {
				v = record.Parse(row[i])
			}
			if !v.IsMissing() {
				blank = false
			}
			r.Set(field, v)
		}
		if !blank {
			s.Records = append(s.Records, r)
		}
	}
	return s, nil
}

func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	used := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := used[name]; ok {
			used[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		}
		used[name] = 0
		header[i] = name
	}
	return header
}

func (s *Sheet) row(r record.Record) []record.Value {
	out := make([]record.Value, len(s.Header))
	for i, field := range s.Header {
		if v, ok := r.Get(field); ok {
			out[i] = v
		}
	}
	return out
}
