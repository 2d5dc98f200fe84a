package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBonusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bonus",
		Short: "Bonus offer commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "claim <offer-id>",
		Short: "Claim a bonus offer before it expires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Player

			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/bonus/%s/claim", args[0]), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	return cmd
}
