// Package google runs the Google Drive OAuth authorization-code flow.
package google

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// Scopes requested on the consent screen. drive lets the workflow write the
// generated documents into the user's Drive.
var Scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/drive",
}

// DefaultAPIBase is the root the userinfo and Drive services are served from.
const DefaultAPIBase = "https://www.googleapis.com/"

const CallbackPath = "/api/auth/google-drive/callback"

// Settings holds the OAuth client registration. Endpoint and APIBase are
// only overridden in tests.
type Settings struct {
	ClientID     string
	ClientSecret string
	AppURL       string

	Endpoint   oauth2.Endpoint
	APIBase    string
	HTTPClient *http.Client
}

// Configured reports whether client id, client secret and app URL are all set.
func (s Settings) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.AppURL != ""
}

// RedirectURL is the callback URL registered with Google.
func (s Settings) RedirectURL() string {
	return strings.TrimRight(s.AppURL, "/") + CallbackPath
}

// OAuthConfig returns the oauth2 config for the Drive connect flow.
func (s Settings) OAuthConfig() *oauth2.Config {
	endpoint := s.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = googleOAuth.Endpoint
	}
	return &oauth2.Config{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		RedirectURL:  s.RedirectURL(),
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

func (s Settings) apiBase() string {
	if s.APIBase == "" {
		return DefaultAPIBase
	}
	return strings.TrimRight(s.APIBase, "/") + "/"
}

// clientContext makes oauth2 use the configured HTTP client for token calls.
func (s Settings) clientContext(ctx context.Context) context.Context {
	if s.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
}

// AuthCodeOptions asks for a refresh token and forces the consent screen so
// Google issues one even on reconnect.
func AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	}
}
