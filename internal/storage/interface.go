package storage

import (
	"context"
	"errors"

	"github.com/ghozitech/ledger/internal/model"
)

// ErrConflict is returned when a user record changed between read and write.
// It is transient: the whole update may be retried.
var ErrConflict = errors.New("concurrent modification of user record")

// UserTx carries one atomic read-modify-write of a user record.
// User is a private copy; records appended here commit together with it.
type UserTx struct {
	User        *model.UserAggregate
	Completions []model.CompletionRecord
	Redemptions []model.RedemptionRequest
}

// AppendCompletion queues a completion record for the same commit
func (tx *UserTx) AppendCompletion(r model.CompletionRecord) {
	tx.Completions = append(tx.Completions, r)
}

// AppendRedemption queues a redemption request for the same commit
func (tx *UserTx) AppendRedemption(r model.RedemptionRequest) {
	tx.Redemptions = append(tx.Redemptions, r)
}

// UpdateFunc mutates the user inside an atomic update. Returning an error aborts
// the update and nothing is written. It may be called again on retry.
type UpdateFunc func(tx *UserTx) error

// Storage defines the interface for data persistence
type Storage interface {
	// User aggregate operations
	CreateUser(ctx context.Context, user *model.UserAggregate) error
	GetUser(ctx context.Context, id model.UserID) (*model.UserAggregate, error)
	ListUsers(ctx context.Context) ([]*model.UserAggregate, error)
	// UpdateUser commits fn's mutations to the user and its appended records as one unit
	UpdateUser(ctx context.Context, id model.UserID, fn UpdateFunc) (*model.UserAggregate, error)

	// History operations (newest first)
	ListCompletions(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error)
	ListRedemptions(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error)
	GetRedemption(ctx context.Context, id string) (*model.RedemptionRequest, error)

	// Credential operations
	SaveCredentials(ctx context.Context, c *model.Credentials) error
	GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error)
}
