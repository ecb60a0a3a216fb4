package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jmilosz/storecart/api/web"
	"github.com/jmilosz/storecart/api/weberr"
	"github.com/jmilosz/storecart/rate"
)

// RateLimit throttles requests per client address using the shared limiter.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !lim.Check(host) {
				err := errors.New("client request rate exceeded")
				return weberr.NewError(err, "too many requests", http.StatusTooManyRequests)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
