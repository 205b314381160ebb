package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is the OAuth and Web API surface used by [Accounts] and [PlaybackService].
type Provider interface {
	// LoginURL returns the authorize URL users are redirected to.
	LoginURL() string

	// Exchange trades an authorization code for an access and refresh token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Refresh obtains a new access token. The returned refresh token is empty when the
	// provider did not rotate it.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)

	// Me fetches the profile of the token's owner.
	Me(ctx context.Context, accessToken string) (*SpotifyUser, error)

	// CurrentlyPlaying returns the raw player response so callers can branch on status.
	CurrentlyPlaying(ctx context.Context, accessToken string) (*APIResponse, error)
}
