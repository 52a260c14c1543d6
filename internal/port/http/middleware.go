package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/revival-automotive/account-service/internal/session"
)

type contextKey string

// UserIDKey carries the authenticated identity id through the request
// context.
const UserIDKey contextKey = "user_id"

// SessionAuth validates the bearer token against the token store and injects
// the user id into the request context.
func SessionAuth(tokens *session.TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "Authorization token required", http.StatusUnauthorized)
				return
			}
			uid, err := tokens.Validate(r.Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, "Session is invalid or expired", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userIDFrom(r *http.Request) (string, bool) {
	uid, ok := r.Context().Value(UserIDKey).(string)
	return uid, ok && uid != ""
}
