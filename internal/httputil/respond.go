package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kartoza/goodspeed/internal/logger"
)

// KindResponse tags failures to encode a response body
const KindResponse = "response"

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error   string      `json:"error"`
	Kind    string      `json:"kind,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// RespondJSON sends a JSON response. The body is encoded before the status
// is written, so an unencodable value becomes a 500 with an error body.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Errorf("encode response: %v", err)
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(ErrorBody{Error: fmt.Sprintf("encode response: %v", err), Kind: KindResponse})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Debugf("write response: %v", err)
	}
}

// RespondErrorKind sends a JSON error response tagged with an error kind
// and optional details the client can render.
func RespondErrorKind(w http.ResponseWriter, status int, kind, message string, details interface{}) {
	RespondJSON(w, status, ErrorBody{Error: message, Kind: kind, Details: details})
}
