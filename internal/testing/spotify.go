package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// Stub routes
const (
	TokenPath   = "/api/token"
	MePath      = "/v1/me"
	PlayingPath = "/v1/me/player/currently-playing"
)

// StubReply is a canned response. A string Body is written verbatim, anything else is JSON encoded.
type StubReply struct {
	Status int
	Body   any
}

// SpotifyStub is an [httptest.Server] standing in for the Spotify accounts and Web API hosts.
//
// Handlers default to a successful token grant, a profile for "spotify-user" and a 204 from
// the player endpoint. Replace them with the Set* methods.
type SpotifyStub struct {
	Server *httptest.Server

	mu      sync.Mutex
	token   func(form url.Values) StubReply
	me      func(accessToken string) StubReply
	playing func(accessToken string) StubReply
	calls   map[string]int
	forms   []url.Values
	bearers []string
}

// NewSpotifyStub starts a stub server that is closed when the test finishes.
func NewSpotifyStub(t *testing.T) *SpotifyStub {
	t.Helper()

	s := &SpotifyStub{
		calls: make(map[string]int),
		token: func(url.Values) StubReply {
			return StubReply{http.StatusOK, TokenBody("access-1", "refresh-1")}
		},
		me: func(string) StubReply {
			return StubReply{http.StatusOK, map[string]any{"id": "spotify-user", "display_name": "Test User"}}
		},
		playing: func(string) StubReply {
			return StubReply{Status: http.StatusNoContent}
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+TokenPath, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls[TokenPath]++
		s.forms = append(s.forms, r.PostForm)
		fn := s.token
		s.mu.Unlock()
		writeReply(w, fn(r.PostForm))
	})
	mux.HandleFunc("GET "+MePath, func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, s.record(MePath, r, func() func(string) StubReply { return s.me }))
	})
	mux.HandleFunc("GET "+PlayingPath, func(w http.ResponseWriter, r *http.Request) {
		writeReply(w, s.record(PlayingPath, r, func() func(string) StubReply { return s.playing }))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// record counts the call and captures the bearer token, then runs the handler picked by pick.
func (s *SpotifyStub) record(path string, r *http.Request, pick func() func(string) StubReply) StubReply {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	s.mu.Lock()
	s.calls[path]++
	s.bearers = append(s.bearers, tok)
	fn := pick()
	s.mu.Unlock()

	return fn(tok)
}

func writeReply(w http.ResponseWriter, reply StubReply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)

	switch body := reply.Body.(type) {
	case nil:
	case string:
		w.Write([]byte(body))
	default:
		json.NewEncoder(w).Encode(body)
	}
}

// TokenBody builds a token endpoint response. An empty refresh token is omitted.
func TokenBody(accessToken, refreshToken string) map[string]any {
	body := map[string]any{"token_type": "Bearer", "expires_in": 3600}
	if accessToken != "" {
		body["access_token"] = accessToken
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return body
}

// PlayingBody builds a currently-playing payload for a single track.
func PlayingBody(name string, artists []string, image string, playing bool, progress, duration int) map[string]any {
	as := make([]map[string]any, 0, len(artists))
	for _, a := range artists {
		as = append(as, map[string]any{"name": a})
	}

	images := []map[string]any{}
	if image != "" {
		images = append(images, map[string]any{"url": image, "height": 640, "width": 640})
	}

	return map[string]any{
		"is_playing":  playing,
		"progress_ms": progress,
		"item": map[string]any{
			"name":        name,
			"artists":     as,
			"duration_ms": duration,
			"album":       map[string]any{"images": images},
		},
	}
}

func (s *SpotifyStub) SetToken(fn func(form url.Values) StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = fn
}

func (s *SpotifyStub) SetMe(fn func(accessToken string) StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.me = fn
}

func (s *SpotifyStub) SetPlaying(fn func(accessToken string) StubReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = fn
}

// Calls returns how many requests reached path.
func (s *SpotifyStub) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Forms returns the form bodies posted to the token endpoint, oldest first.
func (s *SpotifyStub) Forms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.forms...)
}

// Bearers returns the access tokens presented to the Web API, oldest first.
func (s *SpotifyStub) Bearers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bearers...)
}

// Config returns a valid configuration pointing every Spotify URL at the stub
// and the database at an in-memory SQLite.
func (s *SpotifyStub) Config() *shared.Config {
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-id"
	config.Credentials.Spotify.ClientSecret = "client-secret"
	config.Credentials.Spotify.RedirectURI = "http://localhost:3000/callback"
	config.Database.URL = "sqlite://"
	config.Provider.AuthURL = s.Server.URL + "/authorize"
	config.Provider.TokenURL = s.Server.URL + TokenPath
	config.Provider.APIURL = s.Server.URL + "/v1"
	config.Provider.RequestsPerSecond = 0
	return config
}
