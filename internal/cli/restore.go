package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRestoreCommand(o *options) *cobra.Command {
	var (
		at        string
		overwrite bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Clone a backup set back into its source datasets",
		Long: `Restore every table of a backup set into the dataset it was taken from, then
rebuild the materialized views found there. Without --overwrite, tables that
already exist are left untouched and reported as failures.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(cmd.Context(), func(svc Service) error {
				sets, err := svc.ListBackups(cmd.Context())
				if err != nil {
					return err
				}

				set, err := chooseSet(o.prompt, "Select the backup to restore", at, sets)
				if err != nil {
					return err
				}

				desc := fmt.Sprintf("Datasets: %s", strings.Join(set.SourceIDs(), ", "))
				if overwrite {
					desc += "\nExisting tables will be REPLACED."
				}
				if err := confirmOrAbort(o.prompt, yes, fmt.Sprintf("Restore backup %s?", set.Key), desc); err != nil {
					return err
				}

				outcomes, err := svc.Restore(cmd.Context(), set.Instant, overwrite)
				if err != nil {
					return err
				}

				printRestoreOutcomes(cmd.OutOrStdout(), outcomes)
				for _, out := range outcomes {
					if !out.Success || out.ViewsFailed > 0 {
						return ErrPartialFailure
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "instant of the backup set (default: pick interactively)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace tables that already exist")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
