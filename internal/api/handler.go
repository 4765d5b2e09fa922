package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/encoder"
	"github.com/kartoza/goodspeed/internal/httputil"
	"github.com/kartoza/goodspeed/internal/logger"
	"github.com/kartoza/goodspeed/internal/models"
	"github.com/kartoza/goodspeed/internal/predict"
	"github.com/kartoza/goodspeed/internal/registry"
	"github.com/kartoza/goodspeed/internal/table"
)

const (
	// MaxUploadSize bounds a batch spreadsheet upload
	MaxUploadSize = 32 << 20

	kindDiscovery = "discovery"
	kindLoad      = "load"
	kindRequest   = "request"
)

// Handler provides HTTP API endpoints
type Handler struct {
	manager *predict.Manager
	cfg     *config.Config
}

// NewHandler creates a new API handler
func NewHandler(manager *predict.Manager, cfg *config.Config) *Handler {
	return &Handler{
		manager: manager,
		cfg:     cfg,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Models
	r.HandleFunc("/models", h.handleListModels).Methods("GET")
	r.HandleFunc("/models/{label}", h.handleModelInfo).Methods("GET")
	r.HandleFunc("/models/{label}/predict", h.handlePredict).Methods("POST")
	r.HandleFunc("/models/{label}/batch", h.handleBatch).Methods("POST")

	// Export
	r.HandleFunc("/export", h.handleExport).Methods("POST")
}

// respondFailure maps core errors to status codes. The server keeps
// running whatever the error.
func respondFailure(w http.ResponseWriter, err error) {
	var (
		encErr    *predict.EncodingError
		predErr   *predict.PredictionError
		exportErr *predict.ExportError
	)

	switch {
	case errors.Is(err, registry.ErrNoModels):
		httputil.RespondErrorKind(w, http.StatusServiceUnavailable, kindDiscovery, registry.ErrNoModels.Error(), nil)
	case errors.Is(err, registry.ErrUnknownModel):
		httputil.RespondErrorKind(w, http.StatusNotFound, kindDiscovery, err.Error(), nil)
	case errors.As(err, &encErr):
		httputil.RespondErrorKind(w, http.StatusUnprocessableEntity, predict.KindEncoding, err.Error(), failures(encErr.Rows))
	case errors.As(err, &predErr):
		httputil.RespondErrorKind(w, http.StatusInternalServerError, predict.KindPrediction, err.Error(), nil)
	case errors.As(err, &exportErr):
		httputil.RespondErrorKind(w, http.StatusInternalServerError, predict.KindExport, err.Error(), nil)
	default:
		httputil.RespondErrorKind(w, http.StatusInternalServerError, kindLoad, err.Error(), nil)
	}
}

func failures(rows []*encoder.RowError) []predict.Failure {
	out := make([]predict.Failure, len(rows))
	for i, r := range rows {
		out[i] = predict.Failure{Row: r.Index + 1, Field: r.Field, Error: r.Err.Error()}
	}
	return out
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":      h.cfg.Version,
		"storage":      h.cfg.Storage.Type,
		"failFast":     h.cfg.Predict.FailFast,
		"outputColumn": h.cfg.Predict.OutputColumn,
	}
	if s := h.manager.Current(); s != nil {
		info["model"] = s.Model().Label
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleListModels rescans storage and returns the catalog labels
func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	c, err := h.manager.Discover(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, models.ModelListResponse{
		Models:   c.Labels(),
		Selected: h.manager.Preferred(c),
	})
}

// handleModelInfo selects a model and describes its input form
func (h *Handler) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Select(r.Context(), mux.Vars(r)["label"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	numeric := make([]models.NumericField, len(h.cfg.Fields.Numeric))
	for i, f := range h.cfg.Fields.Numeric {
		numeric[i] = models.NumericField{Name: f.Name, Default: f.Default}
	}
	warnings := s.Warnings()
	if warnings == nil {
		warnings = []string{}
	}

	m := s.Model()
	httputil.RespondJSON(w, http.StatusOK, models.ModelInfoResponse{
		Label:        m.Label,
		Kind:         m.Regressor().Kind(),
		FeatureCount: m.NumFeatures(),
		Categorical:  h.cfg.CategoricalNames(),
		Vocabulary:   s.Vocabulary(),
		Numeric:      numeric,
		OutputColumn: h.cfg.Predict.OutputColumn,
		Warnings:     warnings,
	})
}

// handlePredict predicts a single record
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}

	s, err := h.manager.Select(r.Context(), mux.Vars(r)["label"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	res, err := s.PredictOne(req.Record)
	if err != nil {
		respondFailure(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.PredictResponse{
		Model:      s.Model().Label,
		Record:     res.Record,
		Prediction: res.Prediction,
	})
}

// handleBatch predicts every row of an uploaded spreadsheet
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("invalid upload: %v", err), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, "missing file field", nil)
		return
	}
	defer file.Close()

	sheet, err := table.Read(header.Filename, file)
	if err != nil {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("%s: %v", header.Filename, err), nil)
		return
	}

	s, err := h.manager.Select(r.Context(), mux.Vars(r)["label"])
	if err != nil {
		respondFailure(w, err)
		return
	}

	res, err := s.PredictBatch(sheet.Records)
	if err != nil {
		respondFailure(w, err)
		return
	}
	logger.WithBatch(s.Model().Label, res.ID).Infof("batch from %s", header.Filename)

	columns := table.FromRecords(res.Records).Header
	if len(columns) == 0 {
		columns = append(append([]string(nil), sheet.Header...), h.cfg.Predict.OutputColumn)
	}
	failed := res.Failures
	if failed == nil {
		failed = []predict.Failure{}
	}
	dropped := res.Dropped
	if dropped == nil {
		dropped = []string{}
	}

	httputil.RespondJSON(w, http.StatusOK, models.BatchResponse{
		Model:     s.Model().Label,
		BatchID:   res.ID,
		Columns:   columns,
		Records:   res.Records,
		Failures:  failed,
		Dropped:   dropped,
		Predicted: res.Predicted,
		Total:     len(res.Records),
	})
}

// handleExport serializes posted rows into a downloadable spreadsheet
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = table.FormatXLSX
	}
	contentType, ok := contentTypes[format]
	if !ok {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("unsupported format %q", format), nil)
		return
	}

	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorKind(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("invalid request body: %v", err), nil)
		return
	}

	var buf bytes.Buffer
	if err := predict.SerializeForExport(req.Records, format, &buf); err != nil {
		respondFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.cfg.Predict.ExportName+"."+format))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Errorf("write export: %v", err)
	}
}

var contentTypes = map[string]string{
	table.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	table.FormatCSV:  "text/csv; charset=utf-8",
}
