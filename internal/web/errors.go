package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/errorz"
)

var errTooManyRequests = errors.New("too many requests")

type errorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// handleError maps err to a status code and a message that is safe to show to clients.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	res := errorResponse{Success: false}
	code := http.StatusInternalServerError

	var invalidInput errorz.InvalidInput
	switch {
	case errors.As(err, &invalidInput):
		code = http.StatusBadRequest
		res.Message = "Invalid input"
		res.Errors = invalidInput.Fields()
	case errors.Is(err, auth.ErrDuplicateUser):
		code = http.StatusBadRequest
		res.Message = "Email or username already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		code = http.StatusUnauthorized
		res.Message = "Invalid email or password"
	case errors.Is(err, auth.ErrUnauthenticated):
		code = http.StatusUnauthorized
		res.Message = "Invalid or expired token"
	case errors.Is(err, errorz.ErrNotFound):
		code = http.StatusNotFound
		res.Message = "Not found"
	case errors.Is(err, errTooManyRequests):
		code = http.StatusTooManyRequests
		res.Message = "Too many requests"
	default:
		s.deps.Logger.Error("internal server error",
			"method", r.Method,
			"url", r.URL.String(),
			"requestID", requestIDFromContext(r.Context()),
			"error", err,
		)
		res.Message = "Server error"
	}

	s.writeJSON(w, r, code, res)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		// the status code was already written, all we can do is log.
		s.deps.Logger.Error("failed to write response",
			"url", r.URL.String(),
			"requestID", requestIDFromContext(r.Context()),
			"error", err,
		)
	}
}
