package google

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pysugar/tekton-studio/internal/auth/state"
	"github.com/pysugar/tekton-studio/internal/db/models"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/util"
	"golang.org/x/oauth2"
)

// Outcomes of the callback, sent to the dashboard as ?error=<code>.
const (
	ResultConnected    = "connected"
	ResultAuthDenied   = "auth_denied"
	ResultNoCode       = "no_code"
	ResultAuthFailed   = "auth_failed"
	ResultDBSaveFailed = "db_save_failed"
)

// ConnectionStore is the persistence the callback needs.
type ConnectionStore interface {
	SaveGoogleDriveConnection(ctx context.Context, in store.ConnectionInput) (*models.GoogleDriveConnection, error)
	AttachSession(ctx context.Context, userID, sessionID string) error
}

// Connector serves the two OAuth endpoints.
type Connector struct {
	settings Settings
	states   state.Store
	store    ConnectionStore
	sessions *session.Manager
	recorder metrics.Recorder
}

func NewConnector(settings Settings, states state.Store, st ConnectionStore, sessions *session.Manager, rec metrics.Recorder) *Connector {
	if rec == nil {
		rec = metrics.NewNoopMetrics()
	}
	return &Connector{
		settings: settings,
		states:   states,
		store:    st,
		sessions: sessions,
		recorder: rec,
	}
}

func (c *Connector) Settings() Settings { return c.settings }

// HandleCallback finishes the flow and always redirects to the dashboard.
func (c *Connector) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)
	q := r.URL.Query()

	if oauthErr := q.Get("error"); oauthErr != "" {
		log.Warn("google oauth denied", "error", oauthErr)
		c.finish(w, r, ResultAuthDenied)
		return
	}

	code := q.Get("code")
	if code == "" {
		c.finish(w, r, ResultNoCode)
		return
	}

	if !c.settings.Configured() {
		log.Error("google oauth not configured")
		c.finish(w, r, ResultAuthFailed)
		return
	}

	id, _ := session.FromContext(ctx)
	if err := c.states.Consume(ctx, q.Get("state"), id.SessionID); err != nil {
		log.Warn("rejected oauth callback state", "error", err)
		c.finish(w, r, ResultAuthFailed)
		return
	}

	token, err := c.settings.OAuthConfig().Exchange(c.settings.clientContext(ctx), code)
	if err != nil {
		log.Error("token exchange failed", "error", err)
		c.finish(w, r, ResultAuthFailed)
		return
	}

	profile, err := FetchProfile(ctx, c.settings, token)
	if err != nil {
		log.Error("profile fetch failed", "error", err)
		c.finish(w, r, ResultAuthFailed)
		return
	}
	if profile.Email == "" {
		log.Error("google profile has no email")
		c.finish(w, r, ResultDBSaveFailed)
		return
	}

	conn, err := c.store.SaveGoogleDriveConnection(ctx, store.ConnectionInput{
		Email:        profile.Email,
		Name:         profile.Name,
		GoogleUserID: profile.ID,
		ClientID:     c.settings.ClientID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
		Scope:        grantedScope(token),
	})
	if err != nil {
		log.Error("failed to save drive connection", "email", profile.Email, "error", err)
		c.finish(w, r, ResultDBSaveFailed)
		return
	}

	if id.SessionID == "" {
		id = session.NewIdentity()
	}
	id.Email = profile.Email
	if err := c.sessions.SetCookie(w, id); err != nil {
		log.Error("failed to bind session", "error", err)
	}
	if err := c.store.AttachSession(ctx, conn.UserID, id.SessionID); err != nil {
		log.Warn("failed to record session on user", "user_id", conn.UserID, "error", err)
	}

	log.Info("google drive connected",
		"email", profile.Email,
		"access_token", util.MaskToken(token.AccessToken),
		"has_refresh_token", token.RefreshToken != "")
	c.finish(w, r, ResultConnected)
}

func (c *Connector) finish(w http.ResponseWriter, r *http.Request, result string) {
	c.recorder.RecordOAuthCallback(result)

	q := url.Values{}
	if result == ResultConnected {
		q.Set("google_drive_connected", "true")
	} else {
		q.Set("error", result)
	}
	target := strings.TrimRight(c.settings.AppURL, "/") + "/dashboard?" + q.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func grantedScope(token *oauth2.Token) string {
	if s, ok := token.Extra("scope").(string); ok && s != "" {
		return s
	}
	return strings.Join(Scopes, " ")
}
