package handlers

import (
	"errors"
	"net/http"

	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/web"
)

// PageOptions carries the flags the dashboard shows.
type PageOptions struct {
	OAuthConfigured   bool
	WebhookConfigured bool
}

// currentUser resolves the session email to its user row. It returns nil for
// anonymous sessions and unknown emails. An expired Drive token does not hide
// the user's own projects and history.
func currentUser(r *http.Request, st *store.Store) (*models.User, error) {
	id := identity(r)
	if !id.Connected() {
		return nil, nil
	}
	user, err := st.GetUserByEmail(r.Context(), id.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// DashboardHandler serves GET /dashboard.
func DashboardHandler(st *store.Store, renderer *web.Renderer, opts PageOptions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		data := web.DashboardData{
			OAuthConfigured:   opts.OAuthConfigured,
			WebhookConfigured: opts.WebhookConfigured,
			Flash:             web.FlashFromQuery(r.URL.Query()),
		}

		user, err := currentUser(r, st)
		if err != nil {
			log.Error("failed to resolve user", "error", err)
		}
		if user != nil {
			data.Email = user.Email
			if data.Connected, err = st.HasGoogleDriveConnection(r.Context(), user.Email); err != nil {
				log.Error("failed to check drive connection", "error", err)
			}
			if data.Projects, err = st.ListProjects(r.Context(), user.ID); err != nil {
				log.Error("failed to list projects", "error", err)
			}
		}

		if err := renderer.Render(w, http.StatusOK, "dashboard", data); err != nil {
			log.Error("failed to render dashboard", "error", err)
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
	}
}

// HistoryHandler serves GET /history, optionally filtered by ?q=.
func HistoryHandler(st *store.Store, renderer *web.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())
		query := r.URL.Query().Get("q")
		data := web.HistoryData{Query: query}

		user, err := currentUser(r, st)
		if err != nil {
			log.Error("failed to resolve user", "error", err)
		}
		if user != nil {
			data.Email = user.Email
			if data.Connected, err = st.HasGoogleDriveConnection(r.Context(), user.Email); err != nil {
				log.Error("failed to check drive connection", "error", err)
			}
			rows, err := historyRows(r, st, user.ID)
			if err != nil {
				log.Error("failed to list history", "error", err)
			}
			data.Rows = web.FilterHistory(rows, query)
		}

		if err := renderer.Render(w, http.StatusOK, "history", data); err != nil {
			log.Error("failed to render history", "error", err)
			http.Error(w, "Failed to render page", http.StatusInternalServerError)
		}
	}
}

func historyRows(r *http.Request, st *store.Store, userID string) ([]web.HistoryRow, error) {
	usage, err := st.ListProjectUsage(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	rows := make([]web.HistoryRow, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, web.NewHistoryRow(u))
	}
	return rows, nil
}

// ProjectsAPIHandler serves GET /api/projects for the project picker.
func ProjectsAPIHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, st)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "No user for this session")
			return
		}
		projects, err := st.ListProjects(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects, "count": len(projects)})
	}
}

// HistoryAPIHandler serves GET /api/history.
func HistoryAPIHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := currentUser(r, st)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "No user for this session")
			return
		}
		rows, err := historyRows(r, st, user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		rows = web.FilterHistory(rows, r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, map[string]any{"history": rows, "count": len(rows)})
	}
}

// LogoutHandler serves POST /logout.
func LogoutHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Clear(w)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}
