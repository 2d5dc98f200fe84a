package sqlstore

import (
	"time"

	"github.com/ghozitech/ledger/internal/model"
)

// userRow is the persisted UserAggregate without its reservations.
// Version is bumped on every committed update.
type userRow struct {
	ID                string `gorm:"primaryKey;type:varchar(64)"`
	Username          string `gorm:"type:varchar(128)"`
	Email             string `gorm:"type:varchar(255)"`
	TotalPoints       int
	CompletedMissions int
	Accuracy          float64
	FastestTime       int
	LastPlayed        time.Time
	CreatedAt         time.Time
	Version           int64 `gorm:"not null;default:0"`
}

func (userRow) TableName() string { return "users" }

// reservationRow is one dailyCompletions entry. The composite key makes a
// second grant of the same level/date impossible at the database level.
type reservationRow struct {
	UserID    string `gorm:"primaryKey;type:varchar(64)"`
	Key       string `gorm:"primaryKey;column:reservation_key;type:varchar(128)"`
	GrantedAt time.Time
}

func (reservationRow) TableName() string { return "daily_reservations" }

type completionRow struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	UserID           string `gorm:"index;type:varchar(64)"`
	LevelID          int
	PointsEarned     int
	TimeTakenSeconds int
	CompletedAt      time.Time `gorm:"index"`
	CalendarDate     string    `gorm:"type:varchar(10)"`
}

func (completionRow) TableName() string { return "completion_records" }

type redemptionRow struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	UserID          string `gorm:"index;type:varchar(64)"`
	Username        string `gorm:"type:varchar(128)"`
	WalletType      string `gorm:"type:varchar(32)"`
	PhoneNumber     string `gorm:"type:varchar(32)"`
	PointsRequested int
	CashAmount      float64
	Status          string    `gorm:"type:varchar(16)"`
	RequestedAt     time.Time `gorm:"index"`
}

func (redemptionRow) TableName() string { return "redemption_requests" }

type credentialsRow struct {
	UserID       string `gorm:"primaryKey;type:varchar(64)"`
	Email        string `gorm:"uniqueIndex;type:varchar(255)"`
	PasswordHash string
	CreatedAt    time.Time
}

func (credentialsRow) TableName() string { return "credentials" }

func toUserRow(u *model.UserAggregate) userRow {
	return userRow{
		ID:                string(u.ID),
		Username:          u.Username,
		Email:             u.Email,
		TotalPoints:       u.TotalPoints,
		CompletedMissions: u.CompletedMissions,
		Accuracy:          u.Accuracy,
		FastestTime:       u.FastestTime,
		LastPlayed:        u.LastPlayed,
		CreatedAt:         u.CreatedAt,
	}
}

func (r userRow) toModel(reservations []reservationRow) *model.UserAggregate {
	u := &model.UserAggregate{
		ID:                model.UserID(r.ID),
		Username:          r.Username,
		Email:             r.Email,
		TotalPoints:       r.TotalPoints,
		CompletedMissions: r.CompletedMissions,
		Accuracy:          r.Accuracy,
		FastestTime:       r.FastestTime,
		LastPlayed:        r.LastPlayed,
		CreatedAt:         r.CreatedAt,
		DailyCompletions:  make(map[string]time.Time, len(reservations)),
	}
	for _, res := range reservations {
		u.DailyCompletions[res.Key] = res.GrantedAt
	}
	return u
}

func toCompletionRow(c model.CompletionRecord) completionRow {
	return completionRow{
		ID:               c.ID,
		UserID:           string(c.UserID),
		LevelID:          int(c.LevelID),
		PointsEarned:     c.PointsEarned,
		TimeTakenSeconds: c.TimeTakenSeconds,
		CompletedAt:      c.CompletedAt,
		CalendarDate:     c.CalendarDate,
	}
}

func (r completionRow) toModel() model.CompletionRecord {
	return model.CompletionRecord{
		ID:               r.ID,
		UserID:           model.UserID(r.UserID),
		LevelID:          model.LevelID(r.LevelID),
		PointsEarned:     r.PointsEarned,
		TimeTakenSeconds: r.TimeTakenSeconds,
		CompletedAt:      r.CompletedAt,
		CalendarDate:     r.CalendarDate,
	}
}

func toRedemptionRow(r model.RedemptionRequest) redemptionRow {
	return redemptionRow{
		ID:              r.ID,
		UserID:          string(r.UserID),
		Username:        r.Username,
		WalletType:      string(r.WalletType),
		PhoneNumber:     r.PhoneNumber,
		PointsRequested: r.PointsRequested,
		CashAmount:      r.CashAmount,
		Status:          string(r.Status),
		RequestedAt:     r.RequestedAt,
	}
}

func (r redemptionRow) toModel() model.RedemptionRequest {
	return model.RedemptionRequest{
		ID:              r.ID,
		UserID:          model.UserID(r.UserID),
		Username:        r.Username,
		WalletType:      model.WalletType(r.WalletType),
		PhoneNumber:     r.PhoneNumber,
		PointsRequested: r.PointsRequested,
		CashAmount:      r.CashAmount,
		Status:          model.RedemptionStatus(r.Status),
		RequestedAt:     r.RequestedAt,
	}
}
