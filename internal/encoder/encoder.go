// Package encoder turns raw records into the numeric feature matrix a model
// was trained on.
package encoder

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"gonum.org/v1/gonum/mat"

	"github.com/kartoza/goodspeed/internal/record"
	"github.com/kartoza/goodspeed/internal/schema"
)

// RowError is an encoding failure confined to one record
type RowError struct {
	// Index is the zero based position of the record in its batch.
	Index int
	Field string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("record %d: field %q: %v", e.Index+1, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Encoder one-hot expands categorical fields and passes numeric fields
// through.
type Encoder struct {
	categorical map[string]bool
	numeric     map[string]bool
}

// New returns an encoder for the given categorical and numeric field names
func New(categorical, numeric []string) *Encoder {
	e := &Encoder{
		categorical: make(map[string]bool, len(categorical)),
		numeric:     make(map[string]bool, len(numeric)),
	}
	for _, name := range categorical {
		e.categorical[name] = true
	}
	for _, name := range numeric {
		e.numeric[name] = true
	}
	return e
}

// Result is an encoded batch
type Result struct {
	// Columns is the feature column order of every row.
	Columns []string

	// Rows holds one vector per input record; nil for records that failed.
	Rows [][]float64

	// Errors lists failed records in input order.
	Errors []*RowError

	// Dropped lists expanded columns the model does not know, sorted.
	Dropped []string
}

// Err aggregates all row errors, or returns nil
func (r *Result) Err() error {
	var errs *multierror.Error
	for _, e := range r.Errors {
		errs = multierror.Append(errs, e)
	}
	return errs.ErrorOrNil()
}

// Valid returns the indices of successfully encoded records
func (r *Result) Valid() []int {
	idx := make([]int, 0, len(r.Rows))
	for i, row := range r.Rows {
		if row != nil {
			idx = append(idx, i)
		}
	}
	return idx
}

// Matrix stacks the rows at indices into a dense matrix. It returns nil
// when indices is empty or there are no columns.
func (r *Result) Matrix(indices []int) *mat.Dense {
	if len(indices) == 0 || len(r.Columns) == 0 {
		return nil
	}
	data := make([]float64, 0, len(indices)*len(r.Columns))
	for _, i := range indices {
		data = append(data, r.Rows[i]...)
	}
	return mat.NewDense(len(indices), len(r.Columns), data)
}

// Encode converts records into vectors aligned with featureColumns.
//
// Every categorical value and every string in an undeclared field expands
// to a "{field}_{value}" indicator column; numbers in other fields keep
// the field name as their column. The expanded columns are then aligned to
// featureColumns: absent columns read as zero and unknown ones are dropped.
// A record's vector therefore never depends on the rest of its batch.
func (e *Encoder) Encode(records []record.Record, featureColumns []string) *Result {
	res := &Result{
		Columns: append([]string(nil), featureColumns...),
		Rows:    make([][]float64, len(records)),
	}

	target := make(map[string]bool, len(featureColumns))
	for _, column := range featureColumns {
		target[column] = true
	}
	dropped := make(map[string]bool)

	for i, r := range records {
		expanded, rowErr := e.expand(r, target)
		for column := range expanded {
			if !target[column] {
				dropped[column] = true
			}
		}
		if rowErr != nil {
			rowErr.Index = i
			res.Errors = append(res.Errors, rowErr)
			continue
		}

		row := make([]float64, len(featureColumns))
		for j, column := range featureColumns {
			row[j] = expanded[column]
		}
		res.Rows[i] = row
	}

	for column := range dropped {
		res.Dropped = append(res.Dropped, column)
	}
	sort.Strings(res.Dropped)
	return res
}

// EncodeOne encodes a single record as a batch of one
func (e *Encoder) EncodeOne(r record.Record, featureColumns []string) ([]float64, error) {
	res := e.Encode([]record.Record{r}, featureColumns)
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}
	return res.Rows[0], nil
}

func (e *Encoder) expand(r record.Record, target map[string]bool) (map[string]float64, *RowError) {
	out := make(map[string]float64, r.Len())
	for _, field := range r.Fields() {
		v, _ := r.Get(field)

		switch {
		case e.categorical[field]:
			if v.IsMissing() {
				continue
			}
			out[field+schema.Separator+categoryText(v)] = 1
		case e.numeric[field]:
			// A numeric field the model was not trained on is never coerced;
			// it only shows up in Dropped.
			if !target[field] {
				out[field] = 0
				continue
			}
			f, err := v.Float()
			if err != nil {
				return nil, &RowError{Field: field, Err: err}
			}
			out[field] = f
		default:
			switch v.Kind() {
			case record.KindString:
				out[field+schema.Separator+v.String()] = 1
			case record.KindNumber:
				if f, err := v.Float(); err == nil {
					out[field] = f
				}
			}
		}
	}
	return out, nil
}

// categoryText is the text a categorical value matches on. Numbers use
// their shortest form, so a cell holding 0.26000000000000001 matches "0.26".
func categoryText(v record.Value) string {
	if v.Kind() == record.KindNumber {
		if f, err := v.Float(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return v.String()
}
