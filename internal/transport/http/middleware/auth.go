package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const AccountIDKey contextKey = "account_id"

// TokenVerifier resolves a bearer token to the account it was issued for.
type TokenVerifier interface {
	AccountID(token string) (string, bool)
}

// Auth returns middleware that validates the Bearer JWT and injects the account id into context.
func Auth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "Token is missing")
				return
			}
			accountID, ok := tokens.AccountID(tokenStr)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFromContext returns the account id placed by Auth.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountIDKey).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
