package main

import (
	"context"

	"github.com/desertthunder/nowplaying/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Playing prints the playback state for --key, as the widget would see it.
func (r *Runner) Playing(ctx context.Context, cmd *cli.Command) error {
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

	state, err := a.playback.CurrentPlayback(ctx, cmd.String("key"))
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		data, err := formatter.ToJSON(state)
		if err != nil {
			return err
		}
		return r.writeJSON(data)
	case cmd.Bool("plain"):
		return r.writePlain("%s", formatter.FormatPlayback(state))
	default:
		return r.writePlain("%s", formatter.DefaultPalette.Render(state))
	}
}
