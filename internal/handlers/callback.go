package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/store"
)

// CallbackRequest is what the n8n workflow POSTs when a job finishes.
type CallbackRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputLink   string `json:"outputLink,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type UsageUpdater interface {
	UpdateProjectUsageStatus(ctx context.Context, id string, upd store.StatusUpdate) (*models.ProjectUsage, error)
}

// CallbackHandler handles POST /api/callback. It is unauthenticated; the
// usage id is the only capability the workflow holds.
func CallbackHandler(st UsageUpdater, rec metrics.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		var req CallbackRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.ID == "" {
			writeError(w, http.StatusBadRequest, "Missing ID in callback")
			return
		}

		rec.RecordCallback(callbackLabel(req.Status))

		_, err := st.UpdateProjectUsageStatus(r.Context(), req.ID, store.StatusUpdate{
			Status:       req.Status,
			OutputLink:   req.OutputLink,
			ErrorMessage: req.ErrorMessage,
		})
		switch {
		case err == nil:
		case errors.Is(err, store.ErrNotFound):
			log.Warn("callback for unknown usage", "usage_id", req.ID)
			writeError(w, http.StatusNotFound, "Project usage not found")
			return
		case errors.Is(err, store.ErrInvalidTransition):
			log.Warn("rejected callback transition", "usage_id", req.ID, "error", err)
			writeError(w, http.StatusConflict, err.Error())
			return
		default:
			log.Error("failed to update project usage", "usage_id", req.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update project usage: "+err.Error())
			return
		}

		log.Info("callback processed", "usage_id", req.ID, "status", req.Status)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Callback processed successfully"})
	}
}

// callbackLabel keeps the metric's label set bounded.
func callbackLabel(status string) string {
	switch {
	case status == "":
		return "unchanged"
	case store.KnownStatus(status):
		return status
	default:
		return "other"
	}
}
