package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"
	"github.com/willemschots/ecocredit/internal"
	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/errorz"
	"github.com/willemschots/ecocredit/internal/ledger"
	"github.com/willemschots/ecocredit/internal/stats"
	"golang.org/x/time/rate"
)

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger        *slog.Logger
	AuthService   *auth.Service
	LedgerService *ledger.Service
	StatsService  *stats.Service
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	PingMessage string
	// AuthRateLimit and AuthRateBurst limit signups and signins over all clients.
	AuthRateLimit rate.Limit
	AuthRateBurst int
}

type Server struct {
	deps        *ServerDeps
	cfg         ServerConfig
	mux         *http.ServeMux
	decoder     *schema.Decoder
	authLimiter *rate.Limiter
	handler     http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	s := &Server{
		deps:        deps,
		cfg:         cfg,
		mux:         http.NewServeMux(),
		decoder:     decoder,
		authLimiter: rate.NewLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
	}

	// Most endpoints below are created using the mapBoth/mapResponse functions.
	// These return handlers that automatically map between HTTP requests, target functions and HTTP responses.
	// The request mapping and response writing is customizable.

	{
		type ping struct {
			Message string `json:"message"`
			Version string `json:"version"`
		}

		h := mapResponse(s, func(ctx context.Context) (ping, error) {
			return ping{Message: cfg.PingMessage, Version: internal.Version()}, nil
		})

		s.public("GET /api/ping", h)
	}

	// Authentication endpoints.
	{
		const route = "POST /api/auth/signup"
		h := mapBoth(s, s.signup)
		h.status(http.StatusCreated)

		s.public(route, s.rateLimited(h))
	}
	{
		const route = "POST /api/auth/signin"
		h := mapBoth(s, s.signin)

		s.public(route, s.rateLimited(h))
	}
	{
		const route = "POST /api/auth/verify"
		h := mapResponse(s, func(ctx context.Context) (authResponse, error) {
			// the authenticated middleware already verified the token.
			user, token := mustUserFromContext(ctx)
			return newAuthResponse(auth.Authenticated{User: user, Token: token}), nil
		})

		s.authenticated(route, h)
	}
	{
		const route = "POST /api/auth/logout"
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// logging out without a valid token is not an error.
			token, err := bearerToken(r)
			if err == nil {
				err = s.deps.AuthService.Revoke(r.Context(), token)
				if err != nil {
					s.handleError(w, r, err)
					return
				}
			}

			s.writeJSON(w, r, http.StatusOK, successResponse{Success: true})
		})

		s.public(route, h)
	}

	// Billing endpoints.
	{
		const route = "POST /api/billing/upload"
		h := mapBoth(s, s.uploadBilling)
		h.status(http.StatusCreated)

		s.authenticated(route, h)
	}
	{
		const route = "GET /api/billing/history"
		h := mapResponse(s, s.billingHistory)

		s.authenticated(route, h)
	}
	{
		const route = "GET /api/billing/dashboard"
		h := mapResponse(s, s.dashboard)

		s.authenticated(route, h)
	}

	s.public("GET /api/leaderboard", mapResponse(s, s.leaderboard))

	// Recycling endpoints.
	s.public("POST /api/recycling/submit", mapBoth(s, s.submitRecycling))
	s.public("GET /api/recycling/my-data/{userID}", mapBoth(s, s.recyclingData))

	s.public("GET /api/analytics/monthly/{userID}", mapBoth(s, s.monthlyAnalytics))

	// Anything else is not found.
	s.public("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handleError(w, r, errorz.ErrNotFound)
	}))

	// Wrap the mux with global middlewares.
	middlewares := []func(http.Handler) http.Handler{
		s.requestLogger,
	}
	s.handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		s.handler = middlewares[i](s.handler)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) public(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// authenticated registers a handler that is only reached with a valid bearer token.
func (s *Server) authenticated(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		user, err := s.deps.AuthService.Verify(r.Context(), token)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		ctx := contextWithUser(r.Context(), user, token)
		handler.ServeHTTP(w, r.WithContext(ctx))
	}))
}
