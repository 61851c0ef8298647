package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Profile is the subset of the userinfo response the app stores.
type Profile struct {
	ID    string
	Email string
	Name  string
}

// FetchProfile reads the OAuth2 v2 userinfo for token.
func FetchProfile(ctx context.Context, s Settings, token *oauth2.Token) (*Profile, error) {
	ctx = s.clientContext(ctx)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	svc, err := oauth2api.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(s.apiBase()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	return &Profile{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}
