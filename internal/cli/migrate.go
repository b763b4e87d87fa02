package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create missing tables and indexes",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDatabase(cmd, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info("schema applied", "driver", cfg.Database.Driver)
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", db.Dialect)
			return nil
		},
	}
}
