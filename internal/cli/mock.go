package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stagehand/internal/scenario"
	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/session"
	"github.com/roach88/stagehand/internal/story"
)

// NewMockCommand creates the mock command: build a scenario and print
// the in-memory dataset without touching any store.
func NewMockCommand(opts *RootOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "mock <scenario.yaml>",
		Short: "Build a scenario into an in-memory dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, st, err := loadScenario(catalogPath, args[0])
			if err != nil {
				return err
			}

			sess := session.New(reg)
			if err := st.Mock(cmd.Context(), sess); err != nil {
				return WrapExitError(ExitFailure, "mock scenario", err)
			}
			return writeDataset(cmd.OutOrStdout(), sess.MockData(), opts.Format)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "catalog.cue", "path to the CUE type catalog")
	return cmd
}

// loadScenario loads the catalog and scenario file and assembles the
// story tree. Shared by mock, seed, and validate.
func loadScenario(catalogPath, scenarioPath string) (*schema.Registry, *story.Story, error) {
	reg, err := schema.LoadCatalog(catalogPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("load catalog %s", catalogPath), err)
	}
	def, err := scenario.Load(scenarioPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("load scenario %s", scenarioPath), err)
	}
	st, err := def.Assemble(reg)
	if err != nil {
		return nil, nil, WrapExitError(ExitFailure, fmt.Sprintf("assemble scenario %s", def.Name), err)
	}
	return reg, st, nil
}
