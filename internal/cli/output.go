package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case []Level:
		o.printLevels(v)
	case Attempt:
		o.printAttempt(v)
	case CompletionResult:
		o.printCompletionResult(v)
	case []Completion:
		o.printCompletions(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case Redemption:
		o.printRedemption(v)
	case []Redemption:
		o.printRedemptions(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	TotalPoints       int       `json:"total_points"`
	CompletedMissions int       `json:"completed_missions"`
	Accuracy          float64   `json:"accuracy"`
	FastestTime       int       `json:"fastest_time"`
	LastPlayed        time.Time `json:"last_played"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Level response type
type Level struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Points           int    `json:"points"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	CompletedToday   *bool  `json:"completed_today,omitempty"`
}

// Attempt response type
type Attempt struct {
	Handle               string    `json:"handle"`
	LevelID              int       `json:"level_id"`
	StartTime            time.Time `json:"start_time"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds"`
	State                string    `json:"state"`
}

// BonusOffer response type
type BonusOffer struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CompletionResult is returned by a winning submission
type CompletionResult struct {
	Player     Player      `json:"player"`
	BonusOffer *BonusOffer `json:"bonus_offer,omitempty"`
}

// Completion is one history entry
type Completion struct {
	ID               string    `json:"id"`
	LevelID          int       `json:"level_id"`
	PointsEarned     int       `json:"points_earned"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
	CalendarDate     string    `json:"calendar_date"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	UserID            string  `json:"user_id"`
	Username          string  `json:"username"`
	TotalPoints       int     `json:"total_points"`
	CompletedMissions int     `json:"completed_missions"`
	Accuracy          float64 `json:"accuracy"`
	FastestTime       int     `json:"fastest_time"`
}

// Leaderboard response type
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Redemption response type
type Redemption struct {
	ID              string    `json:"id"`
	WalletType      string    `json:"wallet_type"`
	PhoneNumber     string    `json:"phone_number"`
	PointsRequested int       `json:"points_requested"`
	CashAmount      float64   `json:"cash_amount"`
	Status          string    `json:"status"`
	RequestedAt     time.Time `json:"requested_at"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

func (o *Output) printPlayer(p Player) {
	fmt.Printf("Player: %s (%s)\n", p.Username, p.ID)
	if p.Email != "" {
		fmt.Printf("Email: %s\n", p.Email)
	}
	fmt.Printf("Points: %d\n", p.TotalPoints)
	fmt.Printf("Missions: %d\n", p.CompletedMissions)
	fmt.Printf("Accuracy: %.1f%%\n", p.Accuracy)
	if p.FastestTime > 0 {
		fmt.Printf("Fastest: %ds\n", p.FastestTime)
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
}

func (o *Output) printLevels(levels []Level) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPOINTS\tLIMIT\tTODAY")
	for _, l := range levels {
		today := "-"
		if l.CompletedToday != nil {
			today = "open"
			if *l.CompletedToday {
				today = "done"
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%ds\t%s\n", l.ID, l.Name, l.Points, l.TimeLimitSeconds, today)
	}
	_ = tw.Flush()
}

func (o *Output) printAttempt(a Attempt) {
	fmt.Printf("Attempt: %s\n", a.Handle)
	fmt.Printf("Level: %d\n", a.LevelID)
	fmt.Printf("State: %s\n", a.State)
	fmt.Printf("Time Remaining: %ds\n", a.TimeRemainingSeconds)
}

func (o *Output) printCompletionResult(c CompletionResult) {
	fmt.Println("Level complete!")
	o.printPlayer(c.Player)
	if c.BonusOffer != nil {
		fmt.Printf("\nBonus offer: +%d points, claim before %s\n",
			c.BonusOffer.Points, c.BonusOffer.ExpiresAt.Local().Format(time.Kitchen))
		fmt.Printf("  ghozi bonus claim %s\n", c.BonusOffer.ID)
	}
}

func (o *Output) printCompletions(records []Completion) {
	if len(records) == 0 {
		fmt.Println("No completions yet")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tLEVEL\tPOINTS\tTIME")
	for _, c := range records {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%ds\n", c.CalendarDate, c.LevelID, c.PointsEarned, c.TimeTakenSeconds)
	}
	_ = tw.Flush()
}

func (o *Output) printLeaderboard(lb Leaderboard) {
	if len(lb.Entries) == 0 {
		fmt.Println("Leaderboard is empty")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYER\tPOINTS\tMISSIONS\tACCURACY\tFASTEST")
	for _, e := range lb.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f%%\t%ds\n",
			e.Rank, e.Username, e.TotalPoints, e.CompletedMissions, e.Accuracy, e.FastestTime)
	}
	_ = tw.Flush()
	if !lb.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", lb.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func (o *Output) printRedemption(r Redemption) {
	fmt.Printf("Redemption: %s\n", r.ID)
	fmt.Printf("Points: %d (%.2f cash)\n", r.PointsRequested, r.CashAmount)
	fmt.Printf("Wallet: %s %s\n", r.WalletType, r.PhoneNumber)
	fmt.Printf("Status: %s\n", r.Status)
}

func (o *Output) printRedemptions(list []Redemption) {
	if len(list) == 0 {
		fmt.Println("No redemptions yet")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOINTS\tCASH\tWALLET\tSTATUS")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%s\t%s\n", r.ID, r.PointsRequested, r.CashAmount, r.WalletType, r.Status)
	}
	_ = tw.Flush()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	if h.Storage != "" {
		fmt.Printf("Storage: %s\n", h.Storage)
	}
}
