package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Level attempt commands",
	}

	cmd.AddCommand(newPlayStartCmd())
	cmd.AddCommand(newPlayStatusCmd())
	cmd.AddCommand(newPlayInputCmd())
	cmd.AddCommand(newPlayOutcomeCmd())
	cmd.AddCommand(newPlayCancelCmd())

	return cmd
}

func newPlayStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <level-id>",
		Short: "Start a timed attempt at a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			levelID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid level id: %s", args[0])
			}

			var result Attempt

			if err := client.Post(cmd.Context(), "/api/v1/attempts", map[string]int{"level_id": levelID}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <handle>",
		Short: "Show an attempt's state and remaining time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Attempt

			if err := client.Get(cmd.Context(), "/api/v1/attempts/"+args[0], &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayInputCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "input <handle> <answer>",
		Short: "Submit an answer for the server to judge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CompletionResult

			req := map[string]string{"input": args[1]}
			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/attempts/%s/input", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newPlayOutcomeCmd() *cobra.Command {
	var accepted bool
	var points, elapsed int

	cmd := &cobra.Command{
		Use:   "outcome <handle>",
		Short: "Submit an already judged outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result CompletionResult

			req := map[string]any{
				"accepted":        accepted,
				"points_earned":   points,
				"elapsed_seconds": elapsed,
			}
			if err := client.Post(cmd.Context(), fmt.Sprintf("/api/v1/attempts/%s/outcome", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&accepted, "accepted", true, "Whether the attempt succeeded")
	cmd.Flags().IntVar(&points, "points", 0, "Points earned")
	cmd.Flags().IntVar(&elapsed, "elapsed", 0, "Seconds taken")

	return cmd
}

func newPlayCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <handle>",
		Short: "Abandon an attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), "/api/v1/attempts/"+args[0]); err != nil {
				return err
			}

			NewOutput(cfg.Output).PrintMessage("Attempt cancelled")
			return nil
		},
	}
}
