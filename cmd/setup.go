package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/ytbulk/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates config.toml when it is missing, then initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err := shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			} else {
				config.ApplyEnv(os.Getenv)
				r.config = config
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, done, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer done()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.printMigrations(db)
}

// SetupStatus prints every known migration and whether it has been applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	path, err := shared.ExpandHome(cfg.Path)
	if err != nil {
		return err
	}

	db := r.db
	if db == nil {
		if db, err = shared.NewDatabase(path); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	return r.printMigrations(db)
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	path, err := shared.ExpandHome(r.config.Database.Path)
	if err != nil {
		return err
	}

	db := r.db
	if db == nil {
		if db, err = shared.NewDatabase(path); err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	r.logger.Info("rolled back latest migration", "path", path)
	return r.printMigrations(db)
}

func (r *Runner) printMigrations(db *sql.DB) error {
	statuses, err := shared.Migrations(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, m := range statuses {
		mark := "pending"
		if m.Applied {
			mark = "applied"
		}
		r.writePlain("%04d  %-28s %s\n", m.Version, m.Name, mark)
	}
	return nil
}
