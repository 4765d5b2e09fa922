package models

import (
	"github.com/kartoza/goodspeed/internal/predict"
	"github.com/kartoza/goodspeed/internal/record"
)

// ModelListResponse lists the discovered model labels
type ModelListResponse struct {
	Models   []string `json:"models"`
	Selected string   `json:"selected"`
}

// NumericField is a free numeric form input
type NumericField struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
}

// ModelInfoResponse describes the form of the selected model
type ModelInfoResponse struct {
	Label        string              `json:"label"`
	Kind         string              `json:"kind"`
	FeatureCount int                 `json:"feature_count"`
	Categorical  []string            `json:"categorical"`
	Vocabulary   map[string][]string `json:"vocabulary"`
	Numeric      []NumericField      `json:"numeric"`
	OutputColumn string              `json:"output_column"`
	Warnings     []string            `json:"warnings"`
}

// PredictRequest carries one raw record
type PredictRequest struct {
	Record record.Record `json:"record"`
}

// PredictResponse is the input record plus its prediction
type PredictResponse struct {
	Model      string        `json:"model"`
	Record     record.Record `json:"record"`
	Prediction float64       `json:"prediction"`
}

// BatchResponse holds every uploaded row with its prediction
type BatchResponse struct {
	Model     string            `json:"model"`
	BatchID   string            `json:"batch_id"`
	Columns   []string          `json:"columns"`
	Records   []record.Record   `json:"records"`
	Failures  []predict.Failure `json:"failures"`
	Dropped   []string          `json:"dropped"`
	Predicted int               `json:"predicted"`
	Total     int               `json:"total"`
}

// ExportRequest carries the rows to serialize
type ExportRequest struct {
	Records []record.Record `json:"records"`
}
