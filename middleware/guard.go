package middleware

import (
	"context"
	"net/http"
	"strings"

	goCreds "github.com/MrEthical07/goCreds"
)

type userContextKey struct{}

// Authenticator resolves a session credential. *goCreds.Engine implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, sessionToken string) (*goCreds.User, error)
}

// UserFromContext returns the user stored by [Guard].
func UserFromContext(ctx context.Context) (*goCreds.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*goCreds.User)
	return u, ok
}

// WithUser stores u the way [Guard] does. Handlers under test use it to skip
// authentication.
func WithUser(ctx context.Context, u *goCreds.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// Guard rejects requests without a valid bearer session. unauthorized writes
// the rejection; nil writes a plain 401.
func Guard(auth Authenticator, unauthorized http.Handler) func(http.Handler) http.Handler {
	if unauthorized == nil {
		unauthorized = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				unauthorized.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized.ServeHTTP(w, r)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				unauthorized.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
