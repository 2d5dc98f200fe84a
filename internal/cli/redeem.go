package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRedeemCmd() *cobra.Command {
	var points int
	var wallet, phone string

	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Request a cash payout of points to an e-wallet",
		Long: `Request a cash payout. At least 10000 points must be redeemed at once,
at 1000 points per cash unit. Supported wallets: gopay, dana, ovo, shopeepay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wallet == "" || phone == "" {
				return fmt.Errorf("--wallet and --phone are required")
			}

			req := map[string]any{
				"points":       points,
				"wallet_type":  wallet,
				"phone_number": phone,
			}
			var result Redemption

			if err := client.Post(cmd.Context(), "/api/v1/redemptions", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&points, "points", 10000, "Points to redeem")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Wallet type (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "Wallet phone number (required)")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("phone")

	return cmd
}

func newRedemptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redemptions [id]",
		Short: "List redemption requests, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if len(args) == 1 {
				var result Redemption
				if err := client.Get(cmd.Context(), "/api/v1/redemptions/"+args[0], &result); err != nil {
					return err
				}
				out.Print(result)
				return nil
			}

			var result []Redemption
			if err := client.Get(cmd.Context(), "/api/v1/redemptions", &result); err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}
}
