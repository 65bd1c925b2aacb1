package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"payment-service/internal/logcontext"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs method, route and status. Bodies carry card data and
// are never logged here.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		ctx := logcontext.AppendCtx(r.Context(), slog.String("requestId", requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		req := r.WithContext(ctx)
		next.ServeHTTP(rec, req)

		// the mux records the matched pattern on the request it served
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.GetOrCreateCounter(`http_requests_total{route="` + route + `",status="` + strconv.Itoa(rec.status) + `"}`).Inc()
		metrics.GetOrCreateHistogram(`http_request_duration_milliseconds{route="` + route + `"}`).
			Update(float64(time.Since(started).Milliseconds()))

		logger.InfoContext(ctx, "Handled request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"durationMs", time.Since(started).Milliseconds(),
		)
	})
}
