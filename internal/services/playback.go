package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
)

const (
	unknownTitle    = "Unknown Title"
	defaultDuration = 1
)

// PlaybackService answers "what is this widget's owner listening to".
type PlaybackService struct {
	provider Provider
	accounts *Accounts
	logger   *log.Logger
}

// NewPlaybackService creates a [PlaybackService].
func NewPlaybackService(provider Provider, accounts *Accounts, logger *log.Logger) *PlaybackService {
	return &PlaybackService{provider: provider, accounts: accounts, logger: logger}
}

// CurrentPlayback returns the normalized playback state for widgetKey.
//
// A 401 triggers one refresh and one retry. When the refresh fails the original
// response is kept. 204 and an absent item both yield [models.EmptyPlayback].
func (s *PlaybackService) CurrentPlayback(ctx context.Context, widgetKey string) (*models.PlaybackState, error) {
	user, err := s.accounts.Lookup(ctx, widgetKey)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.CurrentlyPlaying(ctx, user.AccessToken)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		access, rerr := s.accounts.Refresh(ctx, user)
		if rerr != nil {
			s.logger.Warn("could not refresh access token", "user_id", user.ID, "err", rerr)
		} else {
			if resp, err = s.provider.CurrentlyPlaying(ctx, access); err != nil {
				return nil, err
			}
		}
	}

	switch resp.StatusCode {
	case http.StatusNoContent:
		return models.EmptyPlayback(), nil
	case http.StatusOK:
		return parsePlayback(resp)
	default:
		return nil, resp.Error(nil)
	}
}

func parsePlayback(resp *APIResponse) (*models.PlaybackState, error) {
	var data SpotifyCurrentlyPlaying
	if err := resp.Decode(&data); err != nil {
		return nil, err
	}

	item := data.Item
	if item == nil || item.empty() {
		return models.EmptyPlayback(), nil
	}

	state := &models.PlaybackState{
		Track:      unknownTitle,
		IsPlaying:  data.IsPlaying,
		DurationMS: defaultDuration,
	}
	if item.Name != nil {
		state.Track = *item.Name
	}
	if data.ProgressMS != nil {
		state.ProgressMS = *data.ProgressMS
	}
	if item.DurationMS != nil {
		state.DurationMS = *item.DurationMS
	}

	names := make([]string, 0, len(item.Artists))
	for _, a := range item.Artists {
		names = append(names, a.Name)
	}
	state.Artists = strings.Join(names, ", ")

	if len(item.Album.Images) > 0 {
		state.AlbumImageURL = item.Album.Images[0].URL
	}

	return state, nil
}
