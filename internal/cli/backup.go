package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newBackupCommand(o *options) *cobra.Command {
	var (
		datasets      []string
		at            string
		retentionDays int
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot datasets at one instant",
		Long: `Create a backup set: one backup dataset per source dataset, holding a snapshot
of every plain table taken at the same instant. Views, external tables and
materialized views are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var instant *time.Time
			if at != "" {
				t, err := parseInstant(at)
				if err != nil {
					return err
				}
				instant = &t
			}

			var retention *int
			if cmd.Flags().Changed("retention-days") {
				retention = &retentionDays
			}

			return o.withService(cmd.Context(), func(svc Service) error {
				results, err := svc.Backup(cmd.Context(), datasets, instant, retention)
				if err != nil {
					return err
				}

				printBatchResults(cmd.OutOrStdout(), results)
				for _, r := range results {
					if !r.Success() {
						return ErrPartialFailure
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&datasets, "dataset", "d", nil, "dataset to back up (repeatable, default: configured or all)")
	cmd.Flags().StringVar(&at, "at", "", "point in time to capture, within the last 7 days (default: now)")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "days before snapshots expire (0: never)")

	return cmd
}
