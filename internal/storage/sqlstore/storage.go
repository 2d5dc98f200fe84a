package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// Storage is a relational implementation of the storage interface.
// UpdateUser locks the user row (FOR UPDATE where supported) and guards the
// write with a version check, inside one transaction.
type Storage struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema
func Open(cfg Config) (*Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.Driver)
	}

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == DriverSQLite {
		// SQLite has a single writer; serialise at the pool
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewWithDB(db)
}

// NewWithDB wraps an existing gorm handle and migrates the schema
func NewWithDB(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(
		&userRow{},
		&reservationRow{},
		&completionRow{},
		&redemptionRow{},
		&credentialsRow{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.UserAggregate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("id = ?", string(user.ID)).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return model.ErrUserExists
		}

		row := toUserRow(user)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return insertReservations(tx, user.ID, user.DailyCompletions, nil)
	})
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.UserAggregate, error) {
	db := s.db.WithContext(ctx)

	var row userRow
	if err := db.First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var reservations []reservationRow
	if err := db.Where("user_id = ?", string(id)).Find(&reservations).Error; err != nil {
		return nil, err
	}
	return row.toModel(reservations), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.UserAggregate, error) {
	db := s.db.WithContext(ctx)

	var rows []userRow
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}

	var reservations []reservationRow
	if err := db.Find(&reservations).Error; err != nil {
		return nil, err
	}
	byUser := make(map[string][]reservationRow)
	for _, r := range reservations {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	users := make([]*model.UserAggregate, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel(byUser[row.ID]))
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id model.UserID, fn storage.UpdateFunc) (*model.UserAggregate, error) {
	var updated *model.UserAggregate

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", string(id)).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return model.ErrUserNotFound
			}
			return err
		}

		var reservations []reservationRow
		if err := tx.Where("user_id = ?", string(id)).Find(&reservations).Error; err != nil {
			return err
		}

		current := row.toModel(reservations)
		utx := &storage.UserTx{User: current.Clone()}
		if err := fn(utx); err != nil {
			return err
		}

		next := toUserRow(utx.User)
		res := tx.Model(&userRow{}).
			Where("id = ? AND version = ?", row.ID, row.Version).
			Updates(map[string]interface{}{
				"username":           next.Username,
				"email":              next.Email,
				"total_points":       next.TotalPoints,
				"completed_missions": next.CompletedMissions,
				"accuracy":           next.Accuracy,
				"fastest_time":       next.FastestTime,
				"last_played":        next.LastPlayed,
				"version":            row.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrConflict
		}

		if err := insertReservations(tx, id, utx.User.DailyCompletions, current.DailyCompletions); err != nil {
			return err
		}

		for _, c := range utx.Completions {
			cr := toCompletionRow(c)
			if err := tx.Create(&cr).Error; err != nil {
				return err
			}
		}
		for _, r := range utx.Redemptions {
			rr := toRedemptionRow(r)
			if err := tx.Create(&rr).Error; err != nil {
				return err
			}
		}

		updated = utx.User
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// insertReservations writes the entries of next that are absent from prev
func insertReservations(tx *gorm.DB, id model.UserID, next, prev map[string]time.Time) error {
	for key, grantedAt := range next {
		if _, ok := prev[key]; ok {
			continue
		}
		row := reservationRow{UserID: string(id), Key: key, GrantedAt: grantedAt}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return storage.ErrConflict
			}
			return err
		}
	}
	return nil
}

// History operations

func (s *Storage) ListCompletions(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", string(userID)).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []completionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]model.CompletionRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toModel())
	}
	return records, nil
}

func (s *Storage) ListRedemptions(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error) {
	var rows []redemptionRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", string(userID)).
		Order("requested_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	requests := make([]model.RedemptionRequest, 0, len(rows))
	for _, r := range rows {
		requests = append(requests, r.toModel())
	}
	return requests, nil
}

func (s *Storage) GetRedemption(ctx context.Context, id string) (*model.RedemptionRequest, error) {
	var row redemptionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRedemptionNotFound
		}
		return nil, err
	}
	r := row.toModel()
	return &r, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	row := credentialsRow{
		UserID:       string(c.UserID),
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	var row credentialsRow
	if err := s.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &model.Credentials{
		UserID:       model.UserID(row.UserID),
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}, nil
}
