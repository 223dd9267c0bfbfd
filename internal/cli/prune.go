package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semmidev/bqvault/internal/domain"
)

func newPruneCommand(o *options) *cobra.Command {
	var (
		days int
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete backup sets older than a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(cmd.Context(), func(svc Service) error {
				sets, err := svc.ExpiredSets(cmd.Context(), days)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(sets) == 0 {
					okColor.Fprintln(out, "Nothing to prune")
					return nil
				}
				printBackupSets(out, sets)

				if err := confirmOrAbort(o.prompt, yes,
					fmt.Sprintf("Delete %d backup set(s)?", len(sets)),
					fmt.Sprintf("%d backup dataset(s) will be dropped.", countContainers(sets)),
				); err != nil {
					return err
				}

				result := svc.Prune(cmd.Context(), sets)
				printDeleteResult(out, result)
				if !result.Success() {
					return ErrPartialFailure
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "older-than-days", 0, "age in days (default: backup.prune_after_days)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func countContainers(sets []domain.BackupSetView) int {
	n := 0
	for _, s := range sets {
		n += len(s.Containers)
	}
	return n
}

func containerIDs(containers []domain.BackupContainer) []string {
	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids
}
