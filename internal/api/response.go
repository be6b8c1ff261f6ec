package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/DailyBoost/internal/models"
)

// encodeFailureBody is sent when a payload cannot be encoded. It matches
// models.Error("response encoding failed").
const encodeFailureBody = `{"status":"error","message":"response encoding failed"}`

// writeJSON encodes v before writing headers. An encoding failure becomes a
// 500 carrying encodeFailureBody.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("API response encoding failed", "error", err, "status", status)
		body, status = []byte(encodeFailureBody), http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("API response write failed", "error", err)
	}
}

// writeResult wraps result in an ok envelope.
func writeResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, models.Success(result))
}

// writeError wraps message in an error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.Error(message))
}
