package main

import (
	"context"

	"github.com/desertthunder/ytbulk/internal/formatter"
	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History prints recent import jobs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, done, err := r.database()
	if err != nil {
		return err
	}
	defer done()

	criteria := map[string]any{
		"limit":       int(cmd.Int("limit")),
		"playlist_id": cmd.String("playlist-id"),
	}
	if !cmd.Bool("all") {
		criteria["session_id"] = cliSessionID
	}

	jobs, err := repositories.NewImportRepository(db).List(criteria)
	if err != nil {
		return err
	}

	data, err := formatter.HistoryToText(jobs)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}
