package main

import (
	"fmt"

	"github.com/desertthunder/nowplaying/internal/repositories"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/jmoiron/sqlx"
)

// app is the wired service graph behind the web server and the playing command.
type app struct {
	db       *sqlx.DB
	users    *repositories.UserRepository
	accounts *services.Accounts
	playback *services.PlaybackService
}

// open connects to the configured store, migrates it and builds the services on top.
func (r *Runner) open(config *shared.Config) (*app, error) {
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	client := services.NewSpotifyClient(config, r.httpClient, shared.WithLogger(r.logger, "component", "spotify"))
	users := repositories.NewUserRepository(db, shared.WithLogger(r.logger, "component", "users"))
	accounts := services.NewAccounts(client, users, shared.WithLogger(r.logger, "component", "accounts"))

	return &app{
		db:       db,
		users:    users,
		accounts: accounts,
		playback: services.NewPlaybackService(client, accounts, shared.WithLogger(r.logger, "component", "playback")),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
