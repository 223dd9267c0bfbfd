package cli

import (
	"github.com/spf13/cobra"
)

func newListCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List backup sets, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withService(cmd.Context(), func(svc Service) error {
				sets, err := svc.ListBackups(cmd.Context())
				if err != nil {
					return err
				}
				printBackupSets(cmd.OutOrStdout(), sets)
				return nil
			})
		},
	}
}
