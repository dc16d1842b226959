package middleware

import "net/http"

// DefaultMaxBodyBytes bounds article and comment payloads (256KB).
const DefaultMaxBodyBytes = 256 * 1024

// MaxBodySize limits request bodies of POST, PUT and PATCH requests to max bytes.
func MaxBodySize(max int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}
