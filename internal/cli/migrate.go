package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/bookclub-server/internal/store/sqlite"
)

// NewMigrateCommand creates the migrate command. Opening the store applies
// pending migrations; the command reports the resulting schema version.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending database migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rootOpts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			version, err := sqlite.MigrationVersion(cmd.Context(), rt.store.DB())
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is at schema version %d.\n", rt.cfg.Database.Path, version)
			return nil
		},
	}
}
