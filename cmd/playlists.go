package main

import (
	"context"

	"github.com/desertthunder/ytbulk/internal/formatter"
	"github.com/desertthunder/ytbulk/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Playlists prints the signed in user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.youtube(ctx)
	if err != nil {
		return err
	}

	playlists, err := tasks.NewImportEngine(svc, r.logger).ListPlaylists(ctx, nil)
	if err != nil {
		return err
	}

	data, err := formatter.Playlists(cmd.String("format"), playlists)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("playlists written", "path", path, "count", len(playlists))
		return nil
	}

	return r.writePlain("%s", data)
}
