package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
)

func setupRepo(t *testing.T) *UserRepository {
	t.Helper()
	return NewUserRepository(tu.NewTestDB(t), tu.DiscardLogger())
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert", func(t *testing.T) {
		repo := setupRepo(t)
		user := models.NewUser("spotify-1", "access", "refresh")

		if err := repo.Insert(ctx, user); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		if user.ID == 0 {
			t.Error("user ID should be set after insert")
		}
	})

	t.Run("Insert Conflict", func(t *testing.T) {
		repo := setupRepo(t)
		if err := repo.Insert(ctx, models.NewUser("spotify-1", "a", "r")); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		err := repo.Insert(ctx, models.NewUser("spotify-1", "a2", "r2"))
		if !errors.Is(err, shared.ErrStorageConflict) {
			t.Fatalf("expected ErrStorageConflict, got %v", err)
		}

		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected 1 user after rolled back insert, got %d", n)
		}
	})

	t.Run("Insert Invalid", func(t *testing.T) {
		repo := setupRepo(t)
		if err := repo.Insert(ctx, &models.User{}); !errors.Is(err, shared.ErrMissingInput) {
			t.Errorf("expected ErrMissingInput, got %v", err)
		}
	})

	t.Run("Find", func(t *testing.T) {
		repo := setupRepo(t)
		user := models.NewUser("spotify-1", "access", "refresh")
		if err := repo.Insert(ctx, user); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		byExternal, err := repo.FindByExternalID(ctx, "spotify-1")
		if err != nil {
			t.Fatalf("failed to find by external id: %v", err)
		}
		if byExternal.WidgetKey != user.WidgetKey || byExternal.AccessToken != "access" {
			t.Errorf("unexpected user %+v", byExternal)
		}

		byKey, err := repo.FindByWidgetKey(ctx, user.WidgetKey)
		if err != nil {
			t.Fatalf("failed to find by widget key: %v", err)
		}
		if byKey.ID != user.ID || byKey.RefreshToken != "refresh" {
			t.Errorf("unexpected user %+v", byKey)
		}
	})

	t.Run("Find Missing", func(t *testing.T) {
		repo := setupRepo(t)

		_, err := repo.FindByWidgetKey(ctx, "secret-widget-key")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if strings.Contains(err.Error(), "secret-widget-key") {
			t.Errorf("error should not echo the key: %v", err)
		}

		if _, err := repo.FindByExternalID(ctx, "nobody"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := setupRepo(t)
		user := models.NewUser("spotify-1", "a1", "r1")
		if err := repo.Insert(ctx, user); err != nil {
			t.Fatalf("failed to insert user: %v", err)
		}

		user.SetTokens("a2", "")
		if err := repo.Update(ctx, user); err != nil {
			t.Fatalf("failed to update user: %v", err)
		}

		got, _ := repo.FindByWidgetKey(ctx, user.WidgetKey)
		if got.AccessToken != "a2" || got.RefreshToken != "r1" {
			t.Errorf("unexpected tokens %q %q", got.AccessToken, got.RefreshToken)
		}
	})

	t.Run("Update Missing", func(t *testing.T) {
		repo := setupRepo(t)
		user := models.NewUser("spotify-1", "a", "r")
		user.ID = 42

		if err := repo.Update(ctx, user); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserRepositoryUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates Then Updates", func(t *testing.T) {
		repo := setupRepo(t)

		first, err := repo.Upsert(ctx, "spotify-1", "a1", "r1")
		if err != nil {
			t.Fatalf("first upsert failed: %v", err)
		}

		second, err := repo.Upsert(ctx, "spotify-1", "a2", "r2")
		if err != nil {
			t.Fatalf("second upsert failed: %v", err)
		}

		if first.WidgetKey != second.WidgetKey {
			t.Errorf("widget key changed: %s -> %s", first.WidgetKey, second.WidgetKey)
		}
		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected 1 user, got %d", n)
		}

		stored, _ := repo.FindByExternalID(ctx, "spotify-1")
		if stored.AccessToken != "a2" || stored.RefreshToken != "r2" {
			t.Errorf("expected tokens to be overwritten, got %q %q", stored.AccessToken, stored.RefreshToken)
		}
	})

	t.Run("Distinct Users", func(t *testing.T) {
		repo := setupRepo(t)

		a, _ := repo.Upsert(ctx, "spotify-a", "a", "r")
		b, _ := repo.Upsert(ctx, "spotify-b", "a", "r")
		if a.WidgetKey == b.WidgetKey {
			t.Error("distinct users must get distinct widget keys")
		}
	})

	t.Run("Missing External ID", func(t *testing.T) {
		repo := setupRepo(t)
		if _, err := repo.Upsert(ctx, "", "a", "r"); !errors.Is(err, shared.ErrMissingInput) {
			t.Errorf("expected ErrMissingInput, got %v", err)
		}
	})

	t.Run("Recovers From Insert Conflict", func(t *testing.T) {
		repo := setupRepo(t)

		winner := models.NewUser("spotify-1", "winner-access", "winner-refresh")
		if err := repo.Insert(ctx, winner); err != nil {
			t.Fatalf("failed to insert winner: %v", err)
		}

		got, err := repo.createOrRecover(ctx, "spotify-1", "loser-access", "loser-refresh")
		if err != nil {
			t.Fatalf("conflict should be absorbed, got %v", err)
		}
		if got.WidgetKey != winner.WidgetKey {
			t.Errorf("expected winner's widget key %s, got %s", winner.WidgetKey, got.WidgetKey)
		}

		stored, _ := repo.FindByExternalID(ctx, "spotify-1")
		if stored.AccessToken != "loser-access" {
			t.Errorf("expected tokens from the recovered call, got %q", stored.AccessToken)
		}
		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected 1 user, got %d", n)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		repo := setupRepo(t)

		const workers = 8
		keys := make([]string, workers)
		errs := make([]error, workers)

		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				u, err := repo.Upsert(ctx, "spotify-1", "access", "refresh")
				errs[i] = err
				if u != nil {
					keys[i] = u.WidgetKey
				}
			}()
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("worker %d failed: %v", i, err)
			}
			if keys[i] != keys[0] {
				t.Errorf("worker %d saw widget key %s, want %s", i, keys[i], keys[0])
			}
		}

		if n, _ := repo.Count(ctx); n != 1 {
			t.Errorf("expected exactly 1 user, got %d", n)
		}
	})
}
