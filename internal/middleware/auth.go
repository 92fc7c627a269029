package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/apines/go-travelcover/pkg/problem"
)

// openPrefixes are reachable without a key: probes and docs.
var openPrefixes = []string{"/health", "/readyz", "/swagger"}

// SimpleAPIKey authenticates requests via the X-API-Key header or an
// Authorization bearer token. Intended for demo deployments; a real
// deployment would sit behind JWT/OAuth2.
func SimpleAPIKey(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range openPrefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					key = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			// Constant-time compare to avoid leaking key length by timing.
			if subtle.ConstantTimeCompare([]byte(key), want) != 1 {
				problem.Write(w, http.StatusUnauthorized, "Unauthorized", "Invalid or missing API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
