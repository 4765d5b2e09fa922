package predict

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kartoza/goodspeed/internal/encoder"
)

// Error kinds reported to callers
const (
	KindEncoding   = "encoding"
	KindPrediction = "prediction"
	KindExport     = "export"
)

// EncodingError reports records that could not be encoded
type EncodingError struct {
	Model string
	Rows  []*encoder.RowError
}

func (e *EncodingError) Error() string {
	if len(e.Rows) == 1 {
		return e.Rows[0].Error()
	}
	return fmt.Sprintf("%d records could not be encoded: %v", len(e.Rows), e.Unwrap())
}

func (e *EncodingError) Unwrap() error {
	var errs *multierror.Error
	for _, r := range e.Rows {
		errs = multierror.Append(errs, r)
	}
	return errs.ErrorOrNil()
}

// PredictionError reports a failure inside the model
type PredictionError struct {
	Model string
	Err   error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("model %s failed: %v", e.Model, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// ExportError reports a spreadsheet serialization failure
type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
