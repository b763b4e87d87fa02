package cli

import (
	"fmt"
	"os"

	"github.com/pointmart/backend/internal/services"
	"github.com/spf13/cobra"
)

// NewIndexCommand creates the index command.
func NewIndexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index <manifest.yaml>",
		Short: "Batch index catalog entries from a YAML manifest",
		Long: `Upsert every entry of a YAML manifest into the catalog in one transaction.

An entry replaces any existing entry with the same asset id.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open manifest: %w", err)
			}
			defer f.Close()

			entries, err := services.LoadManifest(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			db, err := openDatabase(cmd, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := services.NewCatalogService(db, cfg.Catalog, log).IngestBatch(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d entries\n", n)
			return nil
		},
	}
}
