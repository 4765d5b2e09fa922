// Package predict runs encoded records through a loaded model and prepares
// the results for display and export.
package predict

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/encoder"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/metrics"
	"github.com/kartoza/goodspeed/internal/record"
	"github.com/kartoza/goodspeed/internal/registry"
	"github.com/kartoza/goodspeed/internal/schema"
	"github.com/kartoza/goodspeed/internal/table"
)

// Session binds one loaded model to the encoder and output settings
type Session struct {
	model   *registry.Model
	fields  config.FieldsConfig
	encoder *encoder.Encoder
	opts    config.PredictConfig
}

// NewSession returns a session for m
func NewSession(m *registry.Model, fields config.FieldsConfig, opts config.PredictConfig) *Session {
	s := &Session{
		model:  m,
		fields: fields,
		opts:   opts,
	}
	s.encoder = encoder.New(fields.Categorical, s.numericNames())
	return s
}

func (s *Session) numericNames() []string {
	names := make([]string, 0, len(s.fields.Numeric))
	for _, f := range s.fields.Numeric {
		names = append(names, f.Name)
	}
	return names
}

// Model returns the loaded model
func (s *Session) Model() *registry.Model {
	return s.model
}

// Vocabulary returns the allowed values of every categorical field
func (s *Session) Vocabulary() schema.Vocabulary {
	return s.model.Introspector().Vocabulary(s.fields.Categorical)
}

// Warnings lists feature columns no known field produces
func (s *Session) Warnings() []string {
	return schema.Unclaimed(s.model.FeatureColumns(), s.fields.Categorical, s.numericNames())
}

// Result is one input record with its prediction appended
type Result struct {
	Record     record.Record
	Prediction float64
}

// PredictOne encodes and predicts a single record
func (s *Session) PredictOne(r record.Record) (*Result, error) {
	label := s.model.Label

	row, err := s.encoder.EncodeOne(r, s.model.FeatureColumns())
	if err != nil {
		metrics.PredictionFailureCount.WithLabelValues(label, KindEncoding).Inc()
		var rowErr *encoder.RowError
		if errors.As(err, &rowErr) {
			return nil, &EncodingError{Model: label, Rows: []*encoder.RowError{rowErr}}
		}
		return nil, err
	}

	preds, err := s.invoke(mat.NewDense(1, len(row), row), 1)
	if err != nil {
		return nil, err
	}

	out := r.Clone()
	out.Set(s.opts.OutputColumn, record.Number(preds[0]))
	metrics.PredictionCount.WithLabelValues(label, "single").Inc()
	return &Result{Record: out, Prediction: preds[0]}, nil
}

// Failure describes a record left without a prediction
type Failure struct {
	// Row is the 1-based position of the record in the batch.
	Row   int    `json:"row"`
	Field string `json:"field"`
	Error string `json:"error"`
}

// BatchResult is the outcome of one batch
type BatchResult struct {
	ID string

	// Records has one entry per input record, in input order, each with
	// the output column appended. Failed records carry an empty value.
	Records []record.Record

	Failures  []Failure
	Dropped   []string
	Predicted int
}

// PredictBatch encodes and predicts records. Records that fail to encode
// are reported in Failures and skipped, unless the session fails fast, in
// which case the whole batch is rejected with an EncodingError.
func (s *Session) PredictBatch(records []record.Record) (*BatchResult, error) {
	label := s.model.Label
	res := &BatchResult{ID: uuid.NewString()}
	log := logger.WithBatch(label, res.ID)

	enc := s.encoder.Encode(records, s.model.FeatureColumns())
	res.Dropped = enc.Dropped
	if len(enc.Dropped) > 0 {
		log.Debugf("ignored %d columns unknown to the model: %v", len(enc.Dropped), enc.Dropped)
	}

	if len(enc.Errors) > 0 {
		metrics.PredictionFailureCount.WithLabelValues(label, KindEncoding).Add(float64(len(enc.Errors)))
		if s.opts.FailFast {
			log.Warnf("rejected batch of %d records: %v", len(records), enc.Err())
			return nil, &EncodingError{Model: label, Rows: enc.Errors}
		}
		for _, e := range enc.Errors {
			res.Failures = append(res.Failures, Failure{Row: e.Index + 1, Field: e.Field, Error: e.Err.Error()})
		}
	}

	valid := enc.Valid()
	preds := make([]float64, len(records))
	if len(valid) > 0 {
		out, err := s.invoke(enc.Matrix(valid), len(valid))
		if err != nil {
			return nil, err
		}
		for i, idx := range valid {
			preds[idx] = out[i]
		}
	}

	failed := make(map[int]bool, len(enc.Errors))
	for _, e := range enc.Errors {
		failed[e.Index] = true
	}

	res.Records = make([]record.Record, len(records))
	for i, r := range records {
		out := r.Clone()
		if failed[i] {
			out.Set(s.opts.OutputColumn, record.Missing())
		} else {
			out.Set(s.opts.OutputColumn, record.Number(preds[i]))
		}
		res.Records[i] = out
	}
	res.Predicted = len(valid)

	metrics.PredictionCount.WithLabelValues(label, "batch").Add(float64(len(valid)))
	log.Infof("predicted %d of %d records", len(valid), len(records))
	return res, nil
}

// invoke runs the regressor, turning errors and panics into a
// PredictionError.
func (s *Session) invoke(x *mat.Dense, rows int) (preds []float64, err error) {
	label := s.model.Label
	defer func() {
		if r := recover(); r != nil {
			err = &PredictionError{Model: label, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			metrics.PredictionFailureCount.WithLabelValues(label, KindPrediction).Inc()
			logger.WithModel(label).Errorf("prediction failed: %v", err)
		}
	}()

	preds, err = s.model.Regressor().Predict(x)
	if err != nil {
		return nil, &PredictionError{Model: label, Err: err}
	}
	if len(preds) != rows {
		return nil, &PredictionError{Model: label, Err: fmt.Errorf("got %d predictions for %d records", len(preds), rows)}
	}
	for i, p := range preds {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, &PredictionError{Model: label, Err: fmt.Errorf("prediction %d is not finite: %v", i+1, p)}
		}
	}
	return preds, nil
}

// SerializeForExport writes records as a spreadsheet in format
func SerializeForExport(records []record.Record, format string, w io.Writer) error {
	if err := table.FromRecords(records).Write(format, w); err != nil {
		metrics.ExportFailureCount.WithLabelValues(format).Inc()
		return &ExportError{Format: format, Err: err}
	}
	metrics.ExportCount.WithLabelValues(format).Inc()
	return nil
}
