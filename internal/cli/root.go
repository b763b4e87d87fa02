package cli

import (
	"fmt"

	"github.com/pointmart/backend/internal/config"
	"github.com/pointmart/backend/internal/database"
	"github.com/pointmart/backend/internal/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the pointmart command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pointmart",
		Short: "PointMart chat marketplace backend",
		Long:  "Serves the chat webhook and admin API, and runs maintenance tasks against the PointMart database.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", ".env", "path to the .env config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand(opts))

	return cmd
}

func loadConfig(opts *RootOptions) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.App.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// openDatabase opens the configured pool and applies the schema.
func openDatabase(cmd *cobra.Command, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cmd.Context(), db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
