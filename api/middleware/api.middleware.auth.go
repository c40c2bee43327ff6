package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jodok/bees/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

// TokenMiddleware checks a static bearer token.
type TokenMiddleware struct {
	token []byte
}

func NewTokenMiddleware(token string) *TokenMiddleware {
	return &TokenMiddleware{token: []byte(token)}
}

// Authenticate rejects requests without the configured token. Without a
// configured token every request passes.
func (m *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.token) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		token := extractToken(r)
		if token == "" {
			handleError(w, errors.NewAuthError("no token provided", nil))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), m.token) != 1 {
			handleError(w, errors.NewAuthError("invalid token", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func handleError(w http.ResponseWriter, err *errors.AppError) {
	err.WithRequestID(nuts.NID("req", 12))
	nuts.L.Warnf("[API] %s", err.Error())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
}
