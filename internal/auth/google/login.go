package google

import (
	"net/http"

	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/session"
)

const missingConfigMessage = "Server configuration error: Missing required environment variables"

// HandleLogin redirects the browser to Google's consent page.
func (c *Connector) HandleLogin(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if !c.settings.Configured() {
		log.Error("google oauth not configured",
			"has_client_id", c.settings.ClientID != "",
			"has_client_secret", c.settings.ClientSecret != "",
			"has_app_url", c.settings.AppURL != "")
		http.Error(w, missingConfigMessage, http.StatusInternalServerError)
		return
	}

	id, _ := session.FromContext(r.Context())
	state, err := c.states.Issue(r.Context(), id.SessionID)
	if err != nil {
		log.Error("failed to issue oauth state", "error", err)
		http.Error(w, "Failed to start Google authorization", http.StatusInternalServerError)
		return
	}

	url := c.settings.OAuthConfig().AuthCodeURL(state, AuthCodeOptions()...)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
