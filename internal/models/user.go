package models

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// User is a Spotify account known to the service.
//
// ExternalID and WidgetKey are immutable once stored. Tokens are never serialized.
type User struct {
	ID           int64     `db:"id" json:"-"`
	ExternalID   string    `db:"spotify_user_id" json:"spotify_user_id"`
	WidgetKey    string    `db:"user_key" json:"user_key"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// NewUser creates a User for externalID with a freshly generated widget key.
func NewUser(externalID, accessToken, refreshToken string) *User {
	now := time.Now().UTC()
	return &User{
		ExternalID:   externalID,
		WidgetKey:    shared.NewWidgetKey(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks that the identifying fields are present.
func (u *User) Validate() error {
	if u.ExternalID == "" {
		return fmt.Errorf("%w: spotify user id", shared.ErrMissingInput)
	}
	if u.WidgetKey == "" {
		return fmt.Errorf("%w: widget key", shared.ErrMissingInput)
	}
	return nil
}

// SetTokens replaces the access token and, when non-empty, the refresh token.
func (u *User) SetTokens(accessToken, refreshToken string) {
	u.AccessToken = accessToken
	if refreshToken != "" {
		u.RefreshToken = refreshToken
	}
	u.UpdatedAt = time.Now().UTC()
}

// UserRepository persists [User] records.
//
// Lookups return [shared.ErrNotFound] when no row matches.
type UserRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*User, error)
	FindByWidgetKey(ctx context.Context, widgetKey string) (*User, error)
	Insert(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	// Upsert links externalID to a user, creating one on first sight and
	// overwriting the stored tokens otherwise.
	Upsert(ctx context.Context, externalID, accessToken, refreshToken string) (*User, error)
}
