package cli

import (
	"github.com/spf13/cobra"
)

func newLevelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List levels and whether they are done today",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Level

			if err := client.Get(cmd.Context(), "/api/v1/levels", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
