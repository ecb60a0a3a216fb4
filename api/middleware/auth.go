package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jmilosz/storecart/api/web"
	"github.com/jmilosz/storecart/api/weberr"
	"github.com/jmilosz/storecart/core/claims"
)

// TokenVerifier resolves a bearer token to the claims of its owner. Token
// issuance and renewal belong to an external auth service; this middleware
// only checks what it is handed.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (claims.Claims, error)
}

// StaticTokens is a fixed token table implementing TokenVerifier. It backs
// development setups and tests.
type StaticTokens map[string]claims.Claims

func (s StaticTokens) Verify(ctx context.Context, token string) (claims.Claims, error) {
	clm, ok := s[token]
	if !ok {
		return claims.Claims{}, errors.New("unknown token")
	}
	return clm, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved claims in the context for the handlers downstream.
func Authenticate(v TokenVerifier) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			token, err := bearerToken(r)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			clm, err := v.Verify(ctx, token)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin additionally requires the ADMIN role.
func Admin(v TokenVerifier) web.Middleware {
	authen := Authenticate(v)
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			if !claims.IsAdmin(ctx) {
				return weberr.NotAuthorized(errors.New("admin role required"))
			}

			return handler(ctx, w, r)
		}
		return authen(h)
	}
	return m
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("authorization header missing")
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("authorization header is not a bearer token")
	}

	return parts[1], nil
}
