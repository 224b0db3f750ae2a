package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytbulk/internal/formatter"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist picker and import.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	lines, err := songLines(cmd)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("%w: pass --file or --song", shared.ErrMissingArgument)
	}

	svc, err := r.youtube(ctx)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/ytbulk-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, done := r.newEngine(svc)
	defer done()

	model := ui.NewModel(ctx, engine, lines)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, importErr := model.Result()
	if result == nil {
		return importErr
	}
	if err := r.writePlain("%s", formatter.ImportReport(result, importErr)); err != nil {
		return err
	}
	return importErr
}
