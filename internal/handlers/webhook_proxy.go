package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/webhook"
)

// WebhookProxyHandler handles POST /api/webhook-proxy, relaying the body to
// n8n once and passing its answer back.
func WebhookProxyHandler(client *webhook.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !client.Configured() {
			writeError(w, http.StatusInternalServerError, webhook.ErrNotConfigured.Error())
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil || !json.Valid(body) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		resp, err := client.Forward(r.Context(), body)
		if err != nil {
			var upErr *webhook.UpstreamError
			if errors.As(err, &upErr) {
				writeError(w, upErr.StatusCode, upErr.Error())
				return
			}
			logging.FromContext(r.Context()).Error("webhook proxy failed", "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, resp.JSON())
	}
}
