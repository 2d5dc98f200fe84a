package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newLeaderboardCmd() *cobra.Command {
	var n int
	var watch bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		Long: `Show the top players ranked by points. Ties go to the older account.

With --watch the CLI connects to the SSE stream and reprints the top 10
every time the ranking is rebuilt. Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return streamLeaderboard()
			}

			var result Leaderboard

			if err := client.Get(cmd.Context(), fmt.Sprintf("/api/v1/leaderboard?n=%d", n), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "top", "n", 10, "Number of entries (max 100)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Stream live updates")

	return cmd
}

// SSEEvent represents a parsed SSE event
type SSEEvent struct {
	Time  time.Time `json:"time"`
	Event string    `json:"event"`
	Data  string    `json:"data"`
}

func streamLeaderboard() error {
	url := strings.TrimSuffix(cfg.ServerURL, "/") + "/api/v1/leaderboard/events"

	// Set up cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// No timeout for SSE
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	jsonOutput := cfg.Output == "json"
	if !jsonOutput {
		fmt.Println("Watching leaderboard")
	}

	// Parse SSE stream
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			// End of event
			if currentEvent != "" {
				printEvent(currentEvent, strings.Join(dataLines, "\n"), jsonOutput)
			}
			currentEvent = ""
			dataLines = nil
		}
	}

	if err := scanner.Err(); err != nil {
		// Context cancellation is expected
		if ctx.Err() != nil {
			if !jsonOutput {
				fmt.Println("\nDisconnected")
			}
			return nil
		}
		return fmt.Errorf("stream error: %w", err)
	}

	if !jsonOutput {
		fmt.Println("Disconnected")
	}
	return nil
}

func printEvent(event, data string, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		jsonData, _ := json.Marshal(SSEEvent{Time: now, Event: event, Data: data})
		fmt.Println(string(jsonData))
		return
	}

	if event != "leaderboard" {
		return
	}
	var lb Leaderboard
	if err := json.Unmarshal([]byte(data), &lb); err != nil {
		fmt.Fprintf(os.Stderr, "bad leaderboard event: %s\n", err)
		return
	}
	fmt.Printf("\n[%s]\n", now.Format("2006-01-02 15:04:05"))
	NewOutput("text").Print(lb)
}
