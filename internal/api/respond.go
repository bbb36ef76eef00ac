package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/mmynk/youowe/internal/action"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeResult renders an action result: the raw payload on success,
// {"error": message} otherwise.
func writeResult[T any](w http.ResponseWriter, res action.Result[T]) {
	if !res.Success {
		writeError(w, res.HTTPCode, res.ErrorMessage)
		return
	}
	writeJSON(w, res.HTTPCode, res.Payload)
}

// writeStatus renders a result that has no body on success.
func writeStatus[T any](w http.ResponseWriter, res action.Result[T]) {
	if !res.Success {
		writeError(w, res.HTTPCode, res.ErrorMessage)
		return
	}
	w.WriteHeader(res.HTTPCode)
}

// decodeBody reads a JSON body into dst. On failure it answers with an empty
// 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		slog.Debug("failed to decode request body", "path", r.URL.Path, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}
