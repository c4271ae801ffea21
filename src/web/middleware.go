package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging logs one line per request with its trace id, honoring an
// X-Trace-Id pushed by the frontend so pool-side and frontend logs correlate.
func withRequestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceId := r.Header.Get("X-Trace-Id")
		if traceId == "" {
			traceId = uuid.NewString()
		}
		w.Header().Set("X-Trace-Id", traceId)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)

		logger.Info(r.Method+" "+r.URL.Path,
			zap.Int("statusCode", recorder.status),
			zap.Int64("ms", time.Since(start).Milliseconds()),
			zap.String("traceId", traceId))
	})
}
