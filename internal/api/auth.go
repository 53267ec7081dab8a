package api

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the shared secret on protected routes.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests whose X-API-Key header does not equal key.
// An empty key rejects everything.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(APIKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				httpError(w, http.StatusForbidden, "Invalid API Key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
