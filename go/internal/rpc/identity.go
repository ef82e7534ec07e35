package rpc

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	HeaderUserID      = "X-User-ID"
	HeaderImpersonate = "X-Impersonate-User"
)

var ErrUnauthenticated = errors.New("missing caller identity")

type callerKey struct{}

// Identity resolves the caller from request headers. Impersonation is only honored
// when devMode is set at startup.
func Identity(devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if as := strings.TrimSpace(r.Header.Get(HeaderImpersonate)); as != "" {
				if devMode {
					log.Debug().Str("user_id", caller).Str("impersonating", as).Msg("developer impersonation")
					caller = as
				} else {
					log.Warn().Str("user_id", caller).Msg("impersonation header ignored outside dev mode")
				}
			}
			if caller != "" {
				r = r.WithContext(WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithCaller returns a context carrying the caller's user ID.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, userID)
}

// Caller returns the caller's user ID, or ErrUnauthenticated.
func Caller(ctx context.Context) (string, error) {
	id, ok := ctx.Value(callerKey{}).(string)
	if !ok || id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
