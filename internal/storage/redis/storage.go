package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// UpdateUser is optimistic: WATCH on the user key, then MULTI/EXEC.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks connectivity
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

// createUserScript stores a new user and indexes it in one step.
// The SADD runs first so a failure there leaves nothing behind.
var createUserScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("SADD", KEYS[2], ARGV[2])
redis.call("SET", KEYS[1], ARGV[1])
return 1
`)

func (s *Storage) CreateUser(ctx context.Context, user *model.UserAggregate) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	created, err := createUserScript.Run(ctx, s.client,
		[]string{userKey(user.ID), usersIndexKey()},
		data, string(user.ID),
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return model.ErrUserExists
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.UserAggregate, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(data)
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.UserAggregate, error) {
	ids, err := s.client.SMembers(ctx, usersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.UserAggregate{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(model.UserID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.UserAggregate, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		user, err := decodeUser([]byte(str))
		if err != nil {
			continue // Skip invalid data
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, id model.UserID, fn storage.UpdateFunc) (*model.UserAggregate, error) {
	key := userKey(id)
	var updated *model.UserAggregate

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrUserNotFound
			}
			return err
		}

		user, err := decodeUser(data)
		if err != nil {
			return err
		}

		utx := &storage.UserTx{User: user}
		if err := fn(utx); err != nil {
			return err
		}

		userData, err := json.Marshal(utx.User)
		if err != nil {
			return err
		}
		completions := make([]interface{}, 0, len(utx.Completions))
		for _, c := range utx.Completions {
			b, err := json.Marshal(c)
			if err != nil {
				return err
			}
			completions = append(completions, string(b))
		}
		redemptions := make(map[string][]byte, len(utx.Redemptions))
		for _, r := range utx.Redemptions {
			b, err := json.Marshal(r)
			if err != nil {
				return err
			}
			redemptions[r.ID] = b
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, userData, 0)
			if len(completions) > 0 {
				pipe.LPush(ctx, completionsKey(id), completions...)
			}
			for _, r := range utx.Redemptions {
				pipe.Set(ctx, redemptionKey(r.ID), redemptions[r.ID], 0)
				pipe.LPush(ctx, redemptionsForUserIndexKey(id), r.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = utx.User
		return nil
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, storage.ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// History operations

func (s *Storage) ListCompletions(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	values, err := s.client.LRange(ctx, completionsKey(userID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	records := make([]model.CompletionRecord, 0, len(values))
	for _, v := range values {
		var r model.CompletionRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			continue // Skip invalid data
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Storage) ListRedemptions(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error) {
	ids, err := s.client.LRange(ctx, redemptionsForUserIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.RedemptionRequest{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redemptionKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	requests := make([]model.RedemptionRequest, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var r model.RedemptionRequest
		if err := json.Unmarshal([]byte(str), &r); err != nil {
			continue
		}
		requests = append(requests, r)
	}
	return requests, nil
}

func (s *Storage) GetRedemption(ctx context.Context, id string) (*model.RedemptionRequest, error) {
	data, err := s.client.Get(ctx, redemptionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRedemptionNotFound
		}
		return nil, err
	}

	var r model.RedemptionRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Credential operations

func (s *Storage) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, credentialsKey(c.UserID), data, 0)
	pipe.Set(ctx, emailIndexKey(c.Email), string(c.UserID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetCredentialsByEmail(ctx context.Context, email string) (*model.Credentials, error) {
	userID, err := s.client.Get(ctx, emailIndexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	data, err := s.client.Get(ctx, credentialsKey(model.UserID(userID))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var c model.Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeUser(data []byte) (*model.UserAggregate, error) {
	var user model.UserAggregate
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	if user.DailyCompletions == nil {
		user.DailyCompletions = make(map[string]time.Time)
	}
	return &user, nil
}
