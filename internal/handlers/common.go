// Package handlers holds the HTTP endpoints. Each constructor takes its
// dependencies and returns an http.HandlerFunc.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pysugar/tekton-studio/internal/session"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func identity(r *http.Request) session.Identity {
	id, _ := session.FromContext(r.Context())
	return id
}
