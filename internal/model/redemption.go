package model

import "time"

// Redemption rules
const (
	MinRedemptionPoints = 10000 // Fixed floor for a single request
	PointsPerCashUnit   = 1000  // cashAmount = points / PointsPerCashUnit
)

// RedemptionStatus tracks the external fulfilment of a request
type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionRejected RedemptionStatus = "rejected"
)

// WalletType is the e-wallet a payout is sent to
type WalletType string

const (
	WalletGoPay     WalletType = "gopay"
	WalletDana      WalletType = "dana"
	WalletOVO       WalletType = "ovo"
	WalletShopeePay WalletType = "shopeepay"
)

// ValidWalletTypes returns all supported wallet types
func ValidWalletTypes() []WalletType {
	return []WalletType{WalletGoPay, WalletDana, WalletOVO, WalletShopeePay}
}

// IsValid returns true for a supported wallet type
func (w WalletType) IsValid() bool {
	for _, v := range ValidWalletTypes() {
		if w == v {
			return true
		}
	}
	return false
}

// CashAmount converts points to currency at the fixed rate
func CashAmount(points int) float64 {
	return float64(points) / PointsPerCashUnit
}

// RedemptionRequest records the intent to pay out points
type RedemptionRequest struct {
	ID              string           `json:"id"`
	UserID          UserID           `json:"userId"`
	Username        string           `json:"username"`
	WalletType      WalletType       `json:"walletType"`
	PhoneNumber     string           `json:"phoneNumber"`
	PointsRequested int              `json:"pointsRequested"`
	CashAmount      float64          `json:"cashAmount"`
	Status          RedemptionStatus `json:"status"`
	RequestedAt     time.Time        `json:"requestedAt"`
}
