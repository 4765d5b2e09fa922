package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

const utf8BOM = "\ufeff"

// ReadCSV reads comma separated text with a header line
func ReadCSV(r io.Reader) (*Sheet, error) {
	reader := gocsv.LazyCSVReader(r)
	if cr, ok := reader.(*csv.Reader); ok {
		cr.FieldsPerRecord = -1
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}
	return fromRows(rows)
}

// WriteCSV writes s with one header line and no index column
func (s *Sheet) WriteCSV(w io.Writer) error {
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := writer.Write(s.Header); err != nil {
		return err
	}

	for _, r := range s.Records {
		values := s.row(r)
		line := make([]string, len(values))
		for i, v := range values {
			line[i] = v.String()
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
