package server

import (
	"crypto/subtle"
	"net/http"
)

// AdminAuth protects operator endpoints with HTTP basic auth. With an empty
// password every request passes.
func AdminAuth(user, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" {
				next.ServeHTTP(w, r)
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok || !equal(u, user) || !equal(p, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="Tekton Admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
