package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stagehand/internal/session"
	"github.com/roach88/stagehand/internal/sqlstore"
)

// NewSeedCommand creates the seed command: build a scenario and commit
// it to a SQLite database in dependency order, deduplicating against
// records already present.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	var catalogPath string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed <scenario.yaml>",
		Short: "Build a scenario and persist it to a SQLite database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := loadScenario(catalogPath, args[0])
			if err != nil {
				return err
			}

			store, err := sqlstore.Open(dbPath, reg)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("open database %s", dbPath), err)
			}
			defer store.Close()

			sess := session.New(reg,
				session.WithFinder(store),
				session.WithUnitOfWork(store),
			)
			if err := st.Persist(cmd.Context(), sess); err != nil {
				return WrapExitError(ExitFailure, "seed scenario", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records\n", len(sess.Builders()))
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "catalog.cue", "path to the CUE type catalog")
	cmd.Flags().StringVar(&dbPath, "db", "stagehand.db", "path to the SQLite database")
	return cmd
}
