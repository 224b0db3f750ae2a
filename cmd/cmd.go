// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the web front end.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web app",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: [server] host:port)",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles Google sign-in for the CLI.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Google in the browser and store credentials locally",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored credentials",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// playlistsCommand lists the signed in user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List your YouTube playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
		},
		Action: r.Playlists,
	}
}

// importCommand adds songs to a playlist.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Search for each song and add the first match to a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "playlist-id",
				Aliases:  []string{"p"},
				Usage:    "Destination playlist ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Text file with one song per line",
			},
			&cli.StringSliceFlag{
				Name:    "song",
				Aliases: []string{"s"},
				Usage:   "Song to add (repeatable)",
			},
		},
		DisableSliceFlagSeparator: true,
		Action:                    r.Import,
	}
}

// historyCommand lists recorded imports.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent imports",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of imports to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "playlist-id",
				Usage: "Only show imports into this playlist",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Include imports started from the web app",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive imports.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Pick a playlist and import songs interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "Text file with one song per line",
			},
			&cli.StringSliceFlag{
				Name:    "song",
				Aliases: []string{"s"},
				Usage:   "Song to add (repeatable)",
			},
		},
		DisableSliceFlagSeparator: true,
		Action:                    r.TUI,
	}
}
