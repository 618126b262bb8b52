package web

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the ID under which a request was logged.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger assigns every request an ID and logs it once it was handled.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.New()

		w.Header().Set(RequestIDHeader, id.String())
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.deps.Logger.Info("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"requestID", id,
		)
	})
}

func requestIDFromContext(ctx context.Context) uuid.UUID {
	id, ok := ctx.Value(requestIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

// rateLimited rejects requests once the shared auth limiter runs dry.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authLimiter.Allow() {
			s.handleError(w, r, errTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
