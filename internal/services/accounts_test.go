package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
)

type testEnv struct {
	stub     *tu.SpotifyStub
	client   *SpotifyClient
	users    *repositories.UserRepository
	accounts *Accounts
	playback *PlaybackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := tu.DiscardLogger()
	stub := tu.NewSpotifyStub(t)
	client := NewSpotifyClient(stub.Config(), nil, logger)
	users := repositories.NewUserRepository(tu.NewTestDB(t), logger)
	accounts := NewAccounts(client, users, logger)

	return &testEnv{
		stub:     stub,
		client:   client,
		users:    users,
		accounts: accounts,
		playback: NewPlaybackService(client, accounts, logger),
	}
}

// rotatingTokens answers authorization-code grants with access-1/refresh-1 and
// refresh grants with refreshedAccess and refreshedRefresh.
func rotatingTokens(refreshedAccess, refreshedRefresh string) func(url.Values) tu.StubReply {
	return func(form url.Values) tu.StubReply {
		if form.Get("grant_type") == "refresh_token" {
			return tu.StubReply{Status: http.StatusOK, Body: tu.TokenBody(refreshedAccess, refreshedRefresh)}
		}
		return tu.StubReply{Status: http.StatusOK, Body: tu.TokenBody("access-1", "refresh-1")}
	}
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("Authorize", func(t *testing.T) {
		t.Run("Creates User", func(t *testing.T) {
			env := newTestEnv(t)

			user, err := env.accounts.Authorize(ctx, "code")
			if err != nil {
				t.Fatalf("authorize failed: %v", err)
			}
			if user.ExternalID != "spotify-user" || !shared.IsWidgetKey(user.WidgetKey) {
				t.Errorf("unexpected user %+v", user)
			}

			stored, err := env.users.FindByWidgetKey(ctx, user.WidgetKey)
			if err != nil {
				t.Fatalf("user not stored: %v", err)
			}
			if stored.AccessToken != "access-1" || stored.RefreshToken != "refresh-1" {
				t.Errorf("unexpected stored tokens %q %q", stored.AccessToken, stored.RefreshToken)
			}
		})

		t.Run("Repeated Callback Keeps Widget Key", func(t *testing.T) {
			env := newTestEnv(t)

			first, err := env.accounts.Authorize(ctx, "code-1")
			if err != nil {
				t.Fatalf("first authorize failed: %v", err)
			}

			env.stub.SetToken(func(url.Values) tu.StubReply {
				return tu.StubReply{Status: http.StatusOK, Body: tu.TokenBody("access-9", "refresh-9")}
			})
			second, err := env.accounts.Authorize(ctx, "code-2")
			if err != nil {
				t.Fatalf("second authorize failed: %v", err)
			}

			if first.WidgetKey != second.WidgetKey {
				t.Errorf("widget key changed: %s -> %s", first.WidgetKey, second.WidgetKey)
			}
			if n, _ := env.users.Count(ctx); n != 1 {
				t.Errorf("expected 1 user, got %d", n)
			}
			if second.AccessToken != "access-9" {
				t.Errorf("expected tokens to be overwritten, got %q", second.AccessToken)
			}
		})

		t.Run("Concurrent Callbacks", func(t *testing.T) {
			env := newTestEnv(t)

			var wg sync.WaitGroup
			keys := make([]string, 5)
			for i := range keys {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if u, err := env.accounts.Authorize(ctx, "code"); err == nil {
						keys[i] = u.WidgetKey
					}
				}()
			}
			wg.Wait()

			for i, k := range keys {
				if k == "" || k != keys[0] {
					t.Errorf("callback %d returned widget key %q, want %q", i, k, keys[0])
				}
			}
			if n, _ := env.users.Count(ctx); n != 1 {
				t.Errorf("expected 1 user, got %d", n)
			}
		})

		t.Run("Exchange Failure", func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.SetToken(func(url.Values) tu.StubReply {
				return tu.StubReply{Status: http.StatusBadRequest, Body: map[string]any{"error": "invalid_grant"}}
			})

			if _, err := env.accounts.Authorize(ctx, "code"); !errors.Is(err, shared.ErrProvider) {
				t.Errorf("expected ErrProvider, got %v", err)
			}
			if env.stub.Calls(tu.MePath) != 0 {
				t.Error("profile should not be fetched after a failed exchange")
			}
		})

		t.Run("Profile Failure", func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.SetMe(func(string) tu.StubReply { return tu.StubReply{Status: http.StatusForbidden} })

			if _, err := env.accounts.Authorize(ctx, "code"); !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if n, _ := env.users.Count(ctx); n != 0 {
				t.Errorf("no user should be stored, got %d", n)
			}
		})

		t.Run("Missing Code", func(t *testing.T) {
			env := newTestEnv(t)
			if _, err := env.accounts.Authorize(ctx, ""); !errors.Is(err, shared.ErrMissingInput) {
				t.Errorf("expected ErrMissingInput, got %v", err)
			}
		})
	})

	t.Run("Lookup", func(t *testing.T) {
		env := newTestEnv(t)

		if _, err := env.accounts.Lookup(ctx, ""); !errors.Is(err, shared.ErrMissingInput) {
			t.Errorf("expected ErrMissingInput, got %v", err)
		}
		if _, err := env.accounts.Lookup(ctx, "unknown"); !errors.Is(err, shared.ErrUnknownWidgetKey) {
			t.Errorf("expected ErrUnknownWidgetKey, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("Persists New Token", func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.SetToken(rotatingTokens("access-2", ""))

			user, _ := env.accounts.Authorize(ctx, "code")
			access, err := env.accounts.Refresh(ctx, user)
			if err != nil {
				t.Fatalf("refresh failed: %v", err)
			}
			if access != "access-2" {
				t.Errorf("expected access-2, got %s", access)
			}

			stored, _ := env.users.FindByWidgetKey(ctx, user.WidgetKey)
			if stored.AccessToken != "access-2" {
				t.Errorf("refreshed token not persisted, got %q", stored.AccessToken)
			}
			if stored.RefreshToken != "refresh-1" {
				t.Errorf("refresh token should be retained, got %q", stored.RefreshToken)
			}
		})

		t.Run("Rotates Refresh Token", func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.SetToken(rotatingTokens("access-2", "refresh-2"))

			user, _ := env.accounts.Authorize(ctx, "code")
			if _, err := env.accounts.Refresh(ctx, user); err != nil {
				t.Fatalf("refresh failed: %v", err)
			}

			stored, _ := env.users.FindByWidgetKey(ctx, user.WidgetKey)
			if stored.RefreshToken != "refresh-2" {
				t.Errorf("expected rotated refresh token, got %q", stored.RefreshToken)
			}
		})

		t.Run("Failure Leaves Store Untouched", func(t *testing.T) {
			env := newTestEnv(t)
			user, _ := env.accounts.Authorize(ctx, "code")

			env.stub.SetToken(func(url.Values) tu.StubReply {
				return tu.StubReply{Status: http.StatusBadRequest, Body: map[string]any{"error": "invalid_grant"}}
			})
			if _, err := env.accounts.Refresh(ctx, user); !errors.Is(err, shared.ErrProvider) {
				t.Errorf("expected ErrProvider, got %v", err)
			}

			stored, _ := env.users.FindByWidgetKey(ctx, user.WidgetKey)
			if stored.AccessToken != "access-1" {
				t.Errorf("access token should be unchanged, got %q", stored.AccessToken)
			}
		})
	})

	t.Run("Profile", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			env := newTestEnv(t)
			user, _ := env.accounts.Authorize(ctx, "code")

			profile, got, err := env.accounts.Profile(ctx, user.WidgetKey)
			if err != nil {
				t.Fatalf("profile failed: %v", err)
			}
			if profile.Name() != "Test User" || got.WidgetKey != user.WidgetKey {
				t.Errorf("unexpected profile %+v for %+v", profile, got)
			}
		})

		t.Run("Refreshes On Rejection", func(t *testing.T) {
			env := newTestEnv(t)
			env.stub.SetToken(rotatingTokens("access-2", ""))
			user, _ := env.accounts.Authorize(ctx, "code")

			env.stub.SetMe(func(tok string) tu.StubReply {
				if tok != "access-2" {
					return tu.StubReply{Status: http.StatusUnauthorized}
				}
				return tu.StubReply{Status: http.StatusOK, Body: map[string]any{"id": "spotify-user"}}
			})

			profile, _, err := env.accounts.Profile(ctx, user.WidgetKey)
			if err != nil {
				t.Fatalf("profile failed: %v", err)
			}
			if profile.Name() != "User" {
				t.Errorf("expected default name, got %s", profile.Name())
			}
		})

		t.Run("Unknown Key", func(t *testing.T) {
			env := newTestEnv(t)
			if _, _, err := env.accounts.Profile(ctx, "nope"); !errors.Is(err, shared.ErrUnknownWidgetKey) {
				t.Errorf("expected ErrUnknownWidgetKey, got %v", err)
			}
			if env.stub.Calls(tu.MePath) != 0 {
				t.Error("unknown key must not reach the provider")
			}
		})
	})
}
