// Spotify implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// Scopes requested at login.
var Scopes = []string{"user-read-currently-playing", "user-read-playback-state"}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// Name returns the display name, falling back to "User".
func (u *SpotifyUser) Name() string {
	if u == nil || u.DisplayName == "" {
		return "User"
	}
	return u.DisplayName
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified artist object.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified album object.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents the playing item. Pointer fields distinguish absent from zero.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       *string         `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS *int            `json:"duration_ms"`
	URI        string          `json:"uri"`
}

func (t *SpotifyTrack) empty() bool {
	return t.ID == "" && t.Name == nil && len(t.Artists) == 0 && t.DurationMS == nil &&
		t.URI == "" && t.Album.ID == "" && len(t.Album.Images) == 0
}

// SpotifyCurrentlyPlaying is the body of GET /me/player/currently-playing.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	ProgressMS           *int          `json:"progress_ms"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// SpotifyClient implements [Provider] against the Spotify accounts service and Web API.
type SpotifyClient struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyClient builds a client from config. A nil client gets one bounded by
// config.Provider.Timeout.
func NewSpotifyClient(config *shared.Config, client *http.Client, logger *log.Logger) *SpotifyClient {
	if client == nil {
		client = &http.Client{Timeout: config.Provider.Timeout}
	}

	endpoint := spotify.Endpoint
	if config.Provider.AuthURL != "" {
		endpoint.AuthURL = config.Provider.AuthURL
	}
	if config.Provider.TokenURL != "" {
		endpoint.TokenURL = config.Provider.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	apiURL := strings.TrimSuffix(config.Provider.APIURL, "/")
	if apiURL == "" {
		apiURL = spotifyBaseURL
	}

	limit, burst := rate.Inf, 1
	if rps := config.Provider.RequestsPerSecond; rps > 0 {
		limit, burst = rate.Limit(rps), max(1, int(rps))
	}

	return &SpotifyClient{
		oauth: &oauth2.Config{
			ClientID:     config.Credentials.Spotify.ClientID,
			ClientSecret: config.Credentials.Spotify.ClientSecret,
			RedirectURL:  config.Credentials.Spotify.RedirectURI,
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		apiURL:     apiURL,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}
}

var _ Provider = (*SpotifyClient)(nil)

// LoginURL returns the OAuth2 authorization URL for user login.
func (c *SpotifyClient) LoginURL() string {
	return c.oauth.AuthCodeURL("")
}

// tokenContext makes the oauth2 package use the client's bounded [http.Client].
func (c *SpotifyClient) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange performs the authorization-code grant. Both tokens must be present.
func (c *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingInput)
	}

	tok, err := c.oauth.Exchange(c.tokenContext(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}

	if tok.RefreshToken == "" {
		return nil, &shared.ProviderError{Err: fmt.Errorf("%w: refresh_token", shared.ErrMissingField)}
	}

	c.logger.Debug("exchanged authorization code", "expires", tok.Expiry)
	return tok, nil
}

// Refresh performs the refresh-token grant.
func (c *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := c.oauth.TokenSource(c.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError(err)
	}

	return tok, nil
}

// tokenError converts token endpoint failures into [shared.ProviderError].
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		pe := &shared.ProviderError{Body: string(re.Body), Err: err}
		if re.Response != nil {
			pe.StatusCode = re.Response.StatusCode
		}
		return pe
	}
	return &shared.ProviderError{Err: err}
}

// doRequest performs a rate limited, bearer-authenticated GET against the Web API.
func (c *SpotifyClient) doRequest(ctx context.Context, accessToken, endpoint string) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &shared.ProviderError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &shared.ProviderError{Err: fmt.Errorf("request failed: %w", err)}
	}

	apiResp, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("spotify request", "endpoint", endpoint, "status", apiResp.StatusCode)
	return apiResp, nil
}

// Me retrieves the profile of the access token's owner.
func (c *SpotifyClient) Me(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	resp, err := c.doRequest(ctx, accessToken, "/me")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp.Error(shared.ErrUnauthorized)
	}

	var user SpotifyUser
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}

	if user.ID == "" {
		return nil, resp.Error(fmt.Errorf("%w: id", shared.ErrMissingField))
	}

	return &user, nil
}

// CurrentlyPlaying returns the player endpoint's raw response.
func (c *SpotifyClient) CurrentlyPlaying(ctx context.Context, accessToken string) (*APIResponse, error) {
	return c.doRequest(ctx, accessToken, "/me/player/currently-playing")
}
