// Package drive performs a live check of a stored Google Drive connection.
package drive

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const DefaultEndpoint = "https://www.googleapis.com/drive/v3/"

// About is what Drive reports for the connected account.
type About struct {
	EmailAddress string `json:"email_address"`
	DisplayName  string `json:"display_name"`
	StorageLimit int64  `json:"storage_limit"`
	StorageUsage int64  `json:"storage_usage"`
}

// Checker calls Drive's about.get with a stored access token. It never
// refreshes the token.
type Checker struct {
	endpoint   string
	httpClient *http.Client
}

// NewChecker builds a checker. apiBase overrides https://www.googleapis.com/
// and is empty outside tests.
func NewChecker(apiBase string, hc *http.Client) *Checker {
	endpoint := DefaultEndpoint
	if apiBase != "" {
		endpoint = strings.TrimRight(apiBase, "/") + "/drive/v3/"
	}
	return &Checker{endpoint: endpoint, httpClient: hc}
}

func (c *Checker) About(ctx context.Context, accessToken string) (*About, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	svc, err := drivev3.NewService(ctx, option.WithHTTPClient(client), option.WithEndpoint(c.endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	about, err := svc.About.Get().Fields("user(displayName,emailAddress)", "storageQuota(limit,usage)").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("drive about request failed: %w", err)
	}

	out := &About{}
	if about.User != nil {
		out.EmailAddress = about.User.EmailAddress
		out.DisplayName = about.User.DisplayName
	}
	if about.StorageQuota != nil {
		out.StorageLimit = about.StorageQuota.Limit
		out.StorageUsage = about.StorageQuota.Usage
	}
	return out, nil
}
