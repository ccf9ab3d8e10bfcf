// Package middleware provides HTTP middlewares for authentication, logging
// and metrics.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey is a middleware that rejects requests not carrying key.
//
// The key is accepted from the "apikey" header or as a bearer token in the
// Authorization header; clients of the table server send both. An empty key
// disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	want := []byte(key)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(want) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if match(want, r.Header.Get("apikey")) || match(want, bearer(r)) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "invalid api key", http.StatusUnauthorized)
		})
	}
}

func match(want []byte, got string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare(want, []byte(got)) == 1
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
