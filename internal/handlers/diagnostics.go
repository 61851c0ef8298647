package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pysugar/tekton-studio/internal/auth/google"
	"github.com/pysugar/tekton-studio/internal/drive"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/version"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// OAuthTestHandler serves GET /api/test/oauth: it checks the OAuth settings
// and builds a sample consent URL without issuing a real state.
func OAuthTestHandler(settings google.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := map[string]bool{
			"clientId":     settings.ClientID != "",
			"clientSecret": settings.ClientSecret != "",
			"appUrl":       settings.AppURL != "",
		}
		if !settings.Configured() {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Missing OAuth environment variables",
				"details": env,
			})
			return
		}

		authURL := settings.OAuthConfig().AuthCodeURL("test_"+time.Now().UTC().Format("20060102150405"), google.AuthCodeOptions()...)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"environment": env,
			"oauth2Client": map[string]any{
				"created":     true,
				"clientId":    truncate(settings.ClientID, 20),
				"redirectUri": settings.RedirectURL(),
			},
			"authUrl": map[string]any{
				"generated": true,
				"url":       truncate(authURL, 100),
				"length":    len(authURL),
			},
			"configuration": map[string]any{
				"accessType": "offline",
				"scopes":     google.Scopes,
				"prompt":     "consent",
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// DatabaseTestHandler serves GET /api/test/database.
func DatabaseTestHandler(st *store.Store, driver string, settings google.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := map[string]any{
			"databaseDriver":     driver,
			"googleClientId":     settings.ClientID != "",
			"googleClientSecret": settings.ClientSecret != "",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Database connection failed",
				"details": map[string]string{"message": err.Error()},
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"environment": env,
			"connection": map[string]any{
				"successful": true,
				"message":    "Database connection successful",
			},
			"tables":    st.Tables(ctx),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// DriveStatusHandler serves GET /api/drive/status for the session's account.
func DriveStatusHandler(st *store.Store, checker *drive.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identity(r)
		if !id.Connected() {
			writeJSON(w, http.StatusOK, map[string]any{"connected": false})
			return
		}

		conn, err := st.GetGoogleDriveConnection(r.Context(), id.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"connected": false, "email": id.Email})
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		body := map[string]any{
			"connected":        true,
			"email":            conn.GoogleEmail,
			"token_expires_at": conn.TokenExpiresAt,
			"last_used":        conn.LastUsed,
		}
		about, err := checker.About(r.Context(), conn.AccessToken)
		if err != nil {
			body["drive"] = map[string]any{"reachable": false, "error": err.Error()}
		} else {
			body["drive"] = map[string]any{"reachable": true, "about": about}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// HealthHandler serves GET /healthz.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
	}
}
