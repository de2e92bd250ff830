// Package middleware holds the HTTP middleware shared by the REST surface.
package middleware

import (
	"encoding/json"
	"net/http"
)

// Middleware is a function that wraps an http.Handler. Values are accepted
// directly by chi's Use and With.
type Middleware func(http.Handler) http.Handler

// MaxBody caps request bodies at n bytes. Handlers see the overflow as a
// read error. n <= 0 disables the cap.
func MaxBody(n int64) Middleware {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSONError answers with the same {"error": msg} body the REST
// handlers use.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
