package main

import (
	"context"
	"net/http"
	"time"

	"github.com/desertthunder/ytbulk/internal/server"
	"github.com/desertthunder/ytbulk/internal/services"
	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/desertthunder/ytbulk/internal/web"
	"github.com/urfave/cli/v3"
)

const purgeInterval = 10 * time.Minute

// Serve runs the web app until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	db, done, err := r.database()
	if err != nil {
		return err
	}
	defer done()

	oauth, err := services.NewOAuthConfig(r.config.Credentials.Google, "")
	if err != nil {
		return err
	}

	opts := web.Options{Config: r.config, DB: db, OAuth: oauth, Logger: shared.WithLogger(r.logger, "component", "web")}
	if r.service != nil {
		opts.ServiceFactory = r.fixedService
	}

	app, err := web.New(opts)
	if err != nil {
		return err
	}
	defer app.Close()

	go r.purge(ctx, app)

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	r.logger.Info("starting web app", "addr", addr, "redirect_uri", oauth.RedirectURL())
	srv := server.NewHTTPServer(addr, app.Handler(), r.config.Server.ImportTimeout())
	return server.Serve(ctx, srv, r.logger)
}

func (r *Runner) fixedService(context.Context, *http.Client) (services.Service, error) {
	return r.service, nil
}

// purge drops expired sessions and OAuth states until ctx is done.
func (r *Runner) purge(ctx context.Context, app *web.App) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := app.Purge(now); err != nil {
				r.logger.Warn("failed to purge expired sessions", "error", err)
			}
		}
	}
}
