package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/sync/singleflight"
)

// Accounts links Spotify users to widget keys and keeps their tokens fresh.
type Accounts struct {
	provider Provider
	users    models.UserRepository
	logger   *log.Logger
	refresh  singleflight.Group
}

// NewAccounts creates an [Accounts] service.
func NewAccounts(provider Provider, users models.UserRepository, logger *log.Logger) *Accounts {
	return &Accounts{provider: provider, users: users, logger: logger}
}

// LoginURL returns the provider's authorize URL.
func (a *Accounts) LoginURL() string {
	return a.provider.LoginURL()
}

// Authorize completes the OAuth callback: exchange the code, resolve the profile and
// upsert the user. The returned user carries the widget key to show.
func (a *Accounts) Authorize(ctx context.Context, code string) (*models.User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingInput)
	}

	tok, err := a.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	profile, err := a.provider.Me(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	user, err := a.users.Upsert(ctx, profile.ID, tok.AccessToken, tok.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}

	a.logger.Info("authorized user", "user_id", user.ID)
	return user, nil
}

// Lookup resolves a widget key to its user.
func (a *Accounts) Lookup(ctx context.Context, widgetKey string) (*models.User, error) {
	if widgetKey == "" {
		return nil, fmt.Errorf("%w: widget key", shared.ErrMissingInput)
	}

	user, err := a.users.FindByWidgetKey(ctx, widgetKey)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrUnknownWidgetKey
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

type refreshed struct {
	access  string
	refresh string
}

// Refresh obtains a new access token for user, persists it and returns it.
//
// Concurrent calls for the same user share one token request. user is updated in place.
func (a *Accounts) Refresh(ctx context.Context, user *models.User) (string, error) {
	if user.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	key := strconv.FormatInt(user.ID, 10)
	v, err, _ := a.refresh.Do(key, func() (any, error) {
		tok, err := a.provider.Refresh(ctx, user.RefreshToken)
		if err != nil {
			return nil, err
		}

		user.SetTokens(tok.AccessToken, tok.RefreshToken)
		if err := a.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}

		a.logger.Debug("refreshed access token", "user_id", user.ID)
		return refreshed{access: user.AccessToken, refresh: user.RefreshToken}, nil
	})
	if err != nil {
		return "", err
	}

	r := v.(refreshed)
	user.SetTokens(r.access, r.refresh)
	return r.access, nil
}

// Profile returns the Spotify profile behind a widget key, refreshing the access
// token once if the provider rejects it.
func (a *Accounts) Profile(ctx context.Context, widgetKey string) (*SpotifyUser, *models.User, error) {
	user, err := a.Lookup(ctx, widgetKey)
	if err != nil {
		return nil, nil, err
	}

	profile, err := a.provider.Me(ctx, user.AccessToken)
	if err == nil {
		return profile, user, nil
	}
	if !errors.Is(err, shared.ErrUnauthorized) {
		return nil, user, err
	}

	access, rerr := a.Refresh(ctx, user)
	if rerr != nil {
		a.logger.Warn("could not refresh access token", "user_id", user.ID, "err", rerr)
		return nil, user, err
	}

	profile, err = a.provider.Me(ctx, access)
	if err != nil {
		return nil, user, err
	}
	return profile, user, nil
}
