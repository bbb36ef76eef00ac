package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs every HTTP request with its status and duration.
// Server errors are logged at ERROR, client errors at WARN.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"auth_user_id", GetAuthUserID(r.Context()),
			"request_id", chimw.GetReqID(r.Context()),
		}

		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("HTTP error", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("HTTP client error", attrs...)
		default:
			slog.Info("HTTP ok", attrs...)
		}
	})
}
