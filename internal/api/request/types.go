package request

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StartAttemptRequest is the request body for starting a level attempt
type StartAttemptRequest struct {
	LevelID int `json:"level_id"`
}

// OutcomeRequest is the request body for reporting an adjudicated outcome
type OutcomeRequest struct {
	Accepted       bool `json:"accepted"`
	PointsEarned   int  `json:"points_earned"`
	ElapsedSeconds int  `json:"elapsed_seconds"`
}

// InputRequest is the request body for submitting a raw puzzle answer
type InputRequest struct {
	Input string `json:"input"`
}

// RedemptionRequest is the request body for requesting a payout
type RedemptionRequest struct {
	Points      int    `json:"points"`
	WalletType  string `json:"wallet_type"`
	PhoneNumber string `json:"phone_number"`
}
