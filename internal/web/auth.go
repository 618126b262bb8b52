package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/krypto"
)

const bearerPrefix = "Bearer "

// bearerToken reads the token from the Authorization header. A missing or
// malformed token is reported as auth.ErrUnauthenticated.
func bearerToken(r *http.Request) (krypto.Token, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return krypto.Token{}, auth.ErrUnauthenticated
	}

	token, err := krypto.ParseToken(strings.TrimSpace(h[len(bearerPrefix):]))
	if err != nil {
		return krypto.Token{}, auth.ErrUnauthenticated
	}

	return token, nil
}

type ctxKey string

const (
	userKey      ctxKey = "ecocreditUser"
	tokenKey     ctxKey = "ecocreditToken"
	requestIDKey ctxKey = "ecocreditRequestID"
)

func contextWithUser(ctx context.Context, user auth.User, token krypto.Token) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey).(auth.User)
	return user, ok
}

// mustUserFromContext must only be used by handlers registered with s.authenticated.
func mustUserFromContext(ctx context.Context) (auth.User, krypto.Token) {
	user, ok := UserFromContext(ctx)
	if !ok {
		panic("no authenticated user in context")
	}

	token, ok := ctx.Value(tokenKey).(krypto.Token)
	if !ok {
		panic("no token in context")
	}

	return user, token
}
