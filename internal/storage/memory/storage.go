package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// UpdateUser holds a per-user mutex across the whole read-check-write.
type Storage struct {
	mu sync.RWMutex

	users           map[model.UserID]*model.UserAggregate
	userLocks       map[model.UserID]*sync.Mutex
	completions     map[model.UserID][]model.CompletionRecord
	redemptions     map[model.UserID][]model.RedemptionRequest
	redemptionIndex map[string]model.UserID
	credentials     map[string]*model.Credentials // by email
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:           make(map[model.UserID]*model.UserAggregate),
		userLocks:       make(map[model.UserID]*sync.Mutex),
		completions:     make(map[model.UserID][]model.CompletionRecord),
		redemptions:     make(map[model.UserID][]model.RedemptionRequest),
		redemptionIndex: make(map[string]model.UserID),
		credentials:     make(map[string]*model.Credentials),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.UserAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return model.ErrUserExists
	}
	s.users[user.ID] = user.Clone()
	s.userLocks[user.ID] = &sync.Mutex{}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.UserAggregate, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id model.UserID, fn storage.UpdateFunc) (*model.UserAggregate, error) {
	s.mu.RLock()
	lock, ok := s.userLocks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrUserNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current := s.users[id].Clone()
	s.mu.RUnlock()

	tx := &storage.UserTx{User: current}
	if err := fn(tx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = tx.User.Clone()
	s.completions[id] = append(s.completions[id], tx.Completions...)
	for _, r := range tx.Redemptions {
		s.redemptions[id] = append(s.redemptions[id], r)
		s.redemptionIndex[r.ID] = id
	}
	return tx.User.Clone(), nil
}

// History operations

func (s *Storage) ListCompletions(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.completions[userID]
	result := make([]model.CompletionRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, records[i])
	}
	return result, nil
}

func (s *Storage) ListRedemptions(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]model.RedemptionRequest, len(s.redemptions[userID]))
	copy(result, s.redemptions[userID])
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].RequestedAt.After(result[j].RequestedAt)
	})
	return result, nil
}

func (s *Storage) GetRedemption(ctx context.Context, id string) (*model.RedemptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.redemptionIndex[id]
	if !ok {
		return nil, model.ErrRedemptionNotFound
	}
	for _, r := range s.redemptions[userID] {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, model.ErrRedemptionNotFound
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	creds := *c
	s.credentials[c.Email] = &creds
	return nil
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[email]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	creds := *c
	return &creds, nil
}
