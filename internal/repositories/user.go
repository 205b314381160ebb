package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/jmoiron/sqlx"
)

const userColumns = `id, spotify_user_id, user_key, access_token, refresh_token, created_at, updated_at`

// UserRepository implements [models.UserRepository] for [models.User] persistence.
type UserRepository struct {
	db     *sqlx.DB
	logger *log.Logger
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sqlx.DB, logger *log.Logger) *UserRepository {
	return &UserRepository{db: db, logger: logger}
}

var _ models.UserRepository = (*UserRepository)(nil)

// FindByExternalID retrieves the user linked to a Spotify user id.
func (r *UserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return r.findOne(ctx, "spotify_user_id", externalID)
}

// FindByWidgetKey retrieves the user owning a widget key.
func (r *UserRepository) FindByWidgetKey(ctx context.Context, widgetKey string) (*models.User, error) {
	return r.findOne(ctx, "user_key", widgetKey)
}

// findOne selects a single user by a unique column. The value is kept out of errors
// since widget keys act as bearer credentials.
func (r *UserRepository) findOne(ctx context.Context, column, value string) (*models.User, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM users WHERE %s = ?", userColumns, column))

	var user models.User
	err := r.db.GetContext(ctx, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user by %s", shared.ErrNotFound, column)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// Insert stores a new user inside a transaction and sets its ID.
//
// A unique constraint failure rolls the transaction back and returns [shared.ErrStorageConflict].
func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO users (spotify_user_id, user_key, access_token, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.QueryRowxContext(ctx, query,
			user.ExternalID, user.WidgetKey, user.AccessToken, user.RefreshToken, user.CreatedAt, user.UpdatedAt,
		).Scan(&id)
		if shared.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user already exists", shared.ErrStorageConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		user.ID = id
		return nil
	})
}

// Update overwrites the stored tokens of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE users
		SET access_token = ?, refresh_token = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, user.AccessToken, user.RefreshToken, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %d", shared.ErrNotFound, user.ID)
	}

	return nil
}

// Upsert links externalID to a user record and stores the given tokens.
//
// An existing user keeps its widget key. A new user gets a fresh one. When a concurrent
// request inserts the same external id first, the conflict is absorbed and the winner's
// record is updated instead.
func (r *UserRepository) Upsert(ctx context.Context, externalID, accessToken, refreshToken string) (*models.User, error) {
	if externalID == "" {
		return nil, fmt.Errorf("%w: spotify user id", shared.ErrMissingInput)
	}

	user, err := r.FindByExternalID(ctx, externalID)
	switch {
	case err == nil:
		return r.overwrite(ctx, user, accessToken, refreshToken)
	case errors.Is(err, shared.ErrNotFound):
		return r.createOrRecover(ctx, externalID, accessToken, refreshToken)
	default:
		return nil, err
	}
}

// createOrRecover inserts a new user, falling back to lookup-and-update on a uniqueness conflict.
func (r *UserRepository) createOrRecover(ctx context.Context, externalID, accessToken, refreshToken string) (*models.User, error) {
	user := models.NewUser(externalID, accessToken, refreshToken)

	err := r.Insert(ctx, user)
	if err == nil {
		r.logger.Info("created user", "user_id", user.ID)
		return user, nil
	}
	if !errors.Is(err, shared.ErrStorageConflict) {
		return nil, err
	}

	r.logger.Debug("concurrent user insert, updating existing record")

	existing, err := r.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to recover from insert conflict: %w", err)
	}
	return r.overwrite(ctx, existing, accessToken, refreshToken)
}

func (r *UserRepository) overwrite(ctx context.Context, user *models.User, accessToken, refreshToken string) (*models.User, error) {
	user.SetTokens(accessToken, refreshToken)
	if err := r.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Count returns the number of stored users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
