package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/pysugar/tekton-studio/internal/generation"
	"github.com/pysugar/tekton-studio/internal/logging"
)

// GenerateAPIHandler handles POST /api/generate.
func GenerateAPIHandler(svc *generation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generation.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		res, err := svc.Submit(r.Context(), identity(r), req)
		if err != nil {
			status, _ := generateErrorStatus(err)
			if status == http.StatusInternalServerError {
				logging.FromContext(r.Context()).Error("generation failed", "error", err)
			}
			body := map[string]any{"error": err.Error()}
			if res != nil {
				body["id"] = res.UsageID
			}
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusAccepted, res)
	}
}

// GenerateFormHandler handles the dashboard form and redirects back.
func GenerateFormHandler(svc *generation.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectDashboard(w, r, url.Values{"error": {"missing_fields"}})
			return
		}
		req := generation.Request{
			ProjectName:      r.PostForm.Get("projectName"),
			BusinessDetails:  r.PostForm.Get("businessDetails"),
			WebsiteStructure: r.PostForm.Get("websiteStructure"),
		}

		if _, err := svc.Submit(r.Context(), identity(r), req); err != nil {
			status, code := generateErrorStatus(err)
			if status == http.StatusInternalServerError {
				logging.FromContext(r.Context()).Error("generation failed", "error", err)
			}
			redirectDashboard(w, r, url.Values{"error": {code}})
			return
		}
		redirectDashboard(w, r, url.Values{"submitted": {"true"}})
	}
}

// generateErrorStatus maps a Submit error to an HTTP status and the
// dashboard error code.
func generateErrorStatus(err error) (int, string) {
	var ve *generation.ValidationError
	switch {
	case errors.Is(err, generation.ErrNotConnected):
		return http.StatusUnauthorized, "not_connected"
	case errors.As(err, &ve):
		return http.StatusBadRequest, "missing_fields"
	case errors.Is(err, generation.ErrForward):
		return http.StatusBadGateway, "webhook_failed"
	default:
		return http.StatusInternalServerError, "save_failed"
	}
}

func redirectDashboard(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, "/dashboard?"+q.Encode(), http.StatusSeeOther)
}
