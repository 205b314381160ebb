package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplaying/internal/server"
	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the web service and the keep-alive task until ctx is cancelled.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	a, err := r.open(config)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := r.httpServer(config, server.New(server.Options{
		Accounts: a.accounts,
		Playback: a.playback,
		Logger:   shared.WithLogger(r.logger, "component", "http"),
	}))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keepAlive := tasks.NewKeepAlive(config.KeepAlive.URL, config.KeepAlive.Interval, r.httpClient, shared.WithLogger(r.logger, "task", "keepalive"))
	go keepAlive.Run(ctx, nil)

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "timeout", config.Server.ShutdownTimeout)

	shutdownCtx, done := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer done()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (r *Runner) httpServer(config *shared.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         config.Addr(),
		Handler:      handler,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		ErrorLog:     r.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}
}
