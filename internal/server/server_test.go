package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/goodspeed/internal/config"
	"github.com/kartoza/goodspeed/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rf_model_a.json"),
		[]byte(`{"kind": "linear", "regression_coefficients": [2]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature_columns_a.json"),
		[]byte(`["Good Qty (Can)"]`), 0o644))

	ns, err := storage.NewDir(dir)
	require.NoError(t, err)

	srv, err := New(config.New(), ns, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		code     int
		contains string
	}{
		{"health", "/api/health", http.StatusOK, `"ok"`},
		{"models", "/api/models", http.StatusOK, `"A"`},
		{"metrics", "/metrics", http.StatusOK, "go_goroutines"},
		{"index", "/", http.StatusOK, "<html"},
		{"spa fallback", "/anything", http.StatusOK, "<html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestServerPredictUpdatesMetrics(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("POST", "/api/models/A/predict",
		strings.NewReader(`{"record": {"Good Qty (Can)": 21}}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"prediction":42`)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), `goodspeed_predict_records_total{mode="single",model="A"}`)
}

func TestNewRequiresStorage(t *testing.T) {
	_, err := New(config.New(), nil, nil)
	assert.Error(t, err)
}
