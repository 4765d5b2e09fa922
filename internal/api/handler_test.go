package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/httputil"
	"github.com/kartoza/goodspeed/internal/models"
	"github.com/kartoza/goodspeed/internal/predict"
	"github.com/kartoza/goodspeed/internal/storage"
)

const (
	testModel   = `{"kind": "linear", "disturbance": 100, "regression_coefficients": [0.5, 10, 20, 5]}`
	testColumns = `["Good Qty (Can)", "Can Size_Slim 180", "Can Size_Slim 250", "Drink Type_Retort"]`
)

func newTestRouter(t *testing.T, artifacts map[string]string) *mux.Router {
	t.Helper()

	dir := t.TempDir()
	for name, content := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	ns, err := storage.NewDir(dir)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	cfg := config.New()
	cfg.Version = "test"
	handler := NewHandler(predict.NewManager(ns, cfg, nil), cfg)

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func defaultArtifacts() map[string]string {
	return map[string]string{
		"rf_model_line_1.json":        testModel,
		"feature_columns_line_1.json": testColumns,
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	json.NewDecoder(w.Body).Decode(&response)

	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
}

func TestInfoEndpoint(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("GET", "/info", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)

	if response["version"] != "test" {
		t.Errorf("Expected version 'test', got '%v'", response["version"])
	}
}

func TestListModelsEmpty(t *testing.T) {
	r := newTestRouter(t, map[string]string{"rf_model_orphan.json": testModel})

	req := httptest.NewRequest("GET", "/models", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	var response httputil.ErrorBody
	json.NewDecoder(w.Body).Decode(&response)

	if response.Error != "no models available" {
		t.Errorf("Expected 'no models available', got '%s'", response.Error)
	}
}

func TestListModels(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	req := httptest.NewRequest("GET", "/models", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.ModelListResponse
	json.NewDecoder(w.Body).Decode(&response)

	if len(response.Models) != 1 || response.Models[0] != "Line 1" {
		t.Errorf("Expected [Line 1], got %v", response.Models)
	}
	if response.Selected != "Line 1" {
		t.Errorf("Expected selected 'Line 1', got '%s'", response.Selected)
	}
}

func TestModelInfo(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	req := httptest.NewRequest("GET", "/models/Line%201", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.ModelInfoResponse
	json.NewDecoder(w.Body).Decode(&response)

	if response.FeatureCount != 4 {
		t.Errorf("Expected 4 features, got %d", response.FeatureCount)
	}
	sizes := response.Vocabulary["Can Size"]
	if len(sizes) != 2 || sizes[0] != "Slim 180" || sizes[1] != "Slim 250" {
		t.Errorf("Unexpected Can Size vocabulary %v", sizes)
	}
	if len(response.Numeric) != 4 || response.Numeric[0].Default != 600000 {
		t.Errorf("Unexpected numeric fields %v", response.Numeric)
	}
}

func TestModelInfoUnknown(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	req := httptest.NewRequest("GET", "/models/Line%209", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestPredict(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	body := `{"record": {"Good Qty (Can)": 600000, "Can Size": "Slim 180", "Drink Type": "Retort", "Note": "x"}}`
	req := httptest.NewRequest("POST", "/models/Line%201/predict", strings.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]json.RawMessage
	json.NewDecoder(w.Body).Decode(&response)

	if string(response["prediction"]) != "300115" {
		t.Errorf("Expected prediction 300115, got %s", response["prediction"])
	}
	expected := `{"Good Qty (Can)":600000,"Can Size":"Slim 180","Drink Type":"Retort","Note":"x","Predicted Good Speed run":300115}`
	if string(response["record"]) != expected {
		t.Errorf("Expected record %s, got %s", expected, response["record"])
	}
}

func TestPredictEncodingError(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	body := `{"record": {"Good Qty (Can)": "lots", "Can Size": "Slim 180"}}`
	req := httptest.NewRequest("POST", "/models/Line%201/predict", strings.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", w.Code)
	}

	var response httputil.ErrorBody
	json.NewDecoder(w.Body).Decode(&response)

	if response.Kind != predict.KindEncoding {
		t.Errorf("Expected kind 'encoding', got '%s'", response.Kind)
	}
}

func TestPredictNonFiniteText(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	for _, qty := range []string{"NaN", "inf", "-Infinity"} {
		body := `{"record": {"Good Qty (Can)": "` + qty + `", "Can Size": "Slim 180"}}`
		req := httptest.NewRequest("POST", "/models/Line%201/predict", strings.NewReader(body))
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected status 422, got %d: %s", qty, w.Code, w.Body.String())
		}

		var response httputil.ErrorBody
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("%s: decode error body: %v", qty, err)
		}
		if response.Kind != predict.KindEncoding {
			t.Errorf("%s: expected kind 'encoding', got '%s'", qty, response.Kind)
		}
	}
}

func TestPredictInvalidBody(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	req := httptest.NewRequest("POST", "/models/Line%201/predict", strings.NewReader(`{"record": [1]}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestBatch(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "batch.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Can Size,Drink Type,Good Qty (Can)\nSlim 180,Retort,600000\nSlim 250,Retort,oops\n"))
	mw.Close()

	req := httptest.NewRequest("POST", "/models/Line%201/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.BatchResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}

	if response.Total != 2 || response.Predicted != 1 {
		t.Errorf("Expected 1 of 2 predicted, got %d of %d", response.Predicted, response.Total)
	}
	if len(response.Failures) != 1 || response.Failures[0].Row != 2 {
		t.Errorf("Unexpected failures %v", response.Failures)
	}
	expected := []string{"Can Size", "Drink Type", "Good Qty (Can)", "Predicted Good Speed run"}
	if strings.Join(response.Columns, "|") != strings.Join(expected, "|") {
		t.Errorf("Expected columns %v, got %v", expected, response.Columns)
	}
	if response.BatchID == "" {
		t.Error("Expected a batch id")
	}
}

func TestBatchNonFiniteNote(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "batch.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Can Size,Drink Type,Good Qty (Can),Note\nSlim 180,Retort,600000,inf\nSlim 250,Retort,1000,NaN\n"))
	mw.Close()

	req := httptest.NewRequest("POST", "/models/Line%201/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.BatchResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatal(err)
	}
	if response.Predicted != 2 {
		t.Errorf("Expected 2 predicted, got %d", response.Predicted)
	}
	note, _ := response.Records[0].Get("Note")
	if note.String() != "inf" {
		t.Errorf("Expected note 'inf', got %q", note.String())
	}
}

func TestBatchMissingFile(t *testing.T) {
	r := newTestRouter(t, defaultArtifacts())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest("POST", "/models/Line%201/batch", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExport(t *testing.T) {
	r := newTestRouter(t, nil)

	body := `{"records": [{"Can Size": "Slim 180", "Predicted Good Speed run": 47000.5}, {"Can Size": "Slim 250", "Predicted Good Speed run": null}]}`
	req := httptest.NewRequest("POST", "/export?format=csv", strings.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="predicted_output.csv"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	expected := "Can Size,Predicted Good Speed run\nSlim 180,47000.5\nSlim 250,\n"
	if w.Body.String() != expected {
		t.Errorf("Expected %q, got %q", expected, w.Body.String())
	}
}

func TestExportXLSX(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("POST", "/export", strings.NewReader(`{"records": [{"a": 1}]}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="predicted_output.xlsx"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("Expected a zip container")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	r := newTestRouter(t, nil)

	req := httptest.NewRequest("POST", "/export?format=ods", strings.NewReader(`{"records": []}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
