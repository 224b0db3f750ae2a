package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/ytbulk/internal/formatter"
	"github.com/desertthunder/ytbulk/internal/repositories"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/tasks"
	"github.com/urfave/cli/v3"
)

// cliSessionID marks import history recorded by the CLI and TUI.
const cliSessionID = "cli"

// songLines reads --file (lines first) followed by every --song.
func songLines(cmd *cli.Command) ([]string, error) {
	text := strings.Join(cmd.StringSlice("song"), "\n")

	path := cmd.String("file")
	if path == "" {
		return tasks.GatherLines(nil, text)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	return tasks.GatherLines(f, text)
}

// newEngine builds an import engine for svc that records history in the local database.
//
// History is best effort: without a usable database the engine runs unrecorded.
func (r *Runner) newEngine(svc services.Service) (*tasks.ImportEngine, func()) {
	engine := tasks.NewImportEngine(svc, r.logger)

	db, done, err := r.database()
	if err != nil {
		r.logger.Warn("import history disabled", "error", err)
		return engine, func() {}
	}

	recorder := repositories.NewImportRecorder(repositories.NewImportRepository(db), cliSessionID)
	return engine.WithRecorder(recorder), done
}

// Import searches each song and adds the first match to the playlist.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	lines, err := songLines(cmd)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		r.logger.Warn("nothing to import, pass --file or --song")
		return nil
	}

	svc, err := r.youtube(ctx)
	if err != nil {
		return err
	}

	engine, done := r.newEngine(svc)
	defer done()

	playlistID := cmd.String("playlist-id")
	r.logger.Info("importing", "playlist_id", playlistID, "lines", len(lines))

	progress := make(chan tasks.ProgressUpdate, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			switch update.Phase {
			case tasks.SearchTracks:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			case tasks.InsertTrack, tasks.SkipTrack:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, importErr := engine.Import(ctx, progress, playlistID, lines)
	close(progress)
	<-printed

	if result == nil {
		return importErr
	}

	r.writePlainln("Import summary")
	if err := r.writePlain("%s", formatter.ImportReport(result, importErr)); err != nil {
		return err
	}
	return importErr
}
