package log

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware stores a request-scoped logger in the context and logs the
// completion of every request. It expects middleware.RequestID to run first.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			reqLogger := logger.WithComponent(ComponentHTTP)
			if requestID != "" {
				reqLogger = reqLogger.With(FieldRequestID, requestID)
			}
			ctx := WithContext(r.Context(), reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			fields := NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.RemoteAddr, r.Header.Get("User-Agent")).
				WithHTTPResponse(status, time.Since(start).Milliseconds())
			reqLogger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
		})
	}
}
