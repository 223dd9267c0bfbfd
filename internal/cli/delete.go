package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDeleteCommand(o *options) *cobra.Command {
	var (
		at  string
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every backup dataset of one backup set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(cmd.Context(), func(svc Service) error {
				sets, err := svc.ListBackups(cmd.Context())
				if err != nil {
					return err
				}

				set, err := chooseSet(o.prompt, "Select the backup to delete", at, sets)
				if err != nil {
					return err
				}

				desc := fmt.Sprintf("Backup datasets: %s", strings.Join(containerIDs(set.Containers), ", "))
				if err := confirmOrAbort(o.prompt, yes, fmt.Sprintf("Delete backup %s?", set.Key), desc); err != nil {
					return err
				}

				result, err := svc.Delete(cmd.Context(), set.Instant)
				if err != nil {
					return err
				}

				printDeleteResult(cmd.OutOrStdout(), result)
				if !result.Success() {
					return ErrPartialFailure
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "instant of the backup set (default: pick interactively)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}
