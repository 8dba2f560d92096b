package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken guards API routes with the configured verify token. The
// token is accepted from X-API-Token, X-API-Key or a bearer Authorization
// header.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-API-Token")
		if token == "" {
			token = r.Header.Get("X-API-Key")
		}
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if token == "" {
			writeError(w, http.StatusUnauthorized, "API token required. Provide token in X-API-Token header or Authorization: Bearer <token>")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.verifyToken)) != 1 {
			writeError(w, http.StatusForbidden, "Invalid API token")
			return
		}
		next(w, r)
	}
}
