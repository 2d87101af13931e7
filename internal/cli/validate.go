package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/scenario"
	"github.com/roach88/stagehand/internal/schema"
)

// NewValidateCommand creates the validate command: strict, build-free
// checking of a scenario against the catalog. Where the build path
// skips a misconfigured relation with a warning, validate reports it
// as a failure.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Validate a scenario against the type catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := schema.LoadCatalog(catalogPath)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("load catalog %s", catalogPath), err)
			}
			def, err := scenario.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("load scenario %s", args[0]), err)
			}
			if _, err := def.Assemble(reg); err != nil {
				return WrapExitError(ExitFailure, "scenario invalid", err)
			}

			problems := checkRelations(&def.Story, reg)
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %s\n", p)
				}
				return WrapExitError(ExitFailure, fmt.Sprintf("scenario %s has %d invalid relations", def.Name, len(problems)), nil)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "scenario %s is valid\n", def.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "catalog.cue", "path to the CUE type catalog")
	return cmd
}

// checkRelations verifies every declared relation field is a real
// relationship field whose declared target matches the relation's.
func checkRelations(sd *scenario.StoryDef, reg *schema.Registry) []string {
	var problems []string
	for _, n := range sd.Narrators {
		sourceType := record.RecordType(n.Narrative)
		for _, rel := range n.Relations {
			target, err := reg.RelationshipTarget(sourceType, rel.Field)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s.%s: %v", sourceType, rel.Field, err))
				continue
			}
			if target != record.RecordType(rel.Target) {
				problems = append(problems,
					fmt.Sprintf("%s.%s points at %s, not %s", sourceType, rel.Field, target, rel.Target))
			}
		}
	}
	for i := range sd.Related {
		problems = append(problems, checkRelations(&sd.Related[i], reg)...)
	}
	return problems
}
