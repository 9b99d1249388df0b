package storage

import (
	"context"

	"TG_rewards_bot/internal/model"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	usersKey     = "rewards:users"
	withdrawsKey = "rewards:withdraws"
)

// RedisStore keeps each record as a JSON blob in a hash, one hash for users
// and one for withdraw requests.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error) {
	fields, err := s.rdb.HGetAll(ctx, usersKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load users hash")
	}

	users := make(map[string]*model.UserAccount, len(fields))
	for id, raw := range fields {
		var u model.UserAccount
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			// skip the damaged record instead of failing the whole load
			continue
		}
		u.ID = id
		users[id] = &u
	}
	return users, nil
}

func (s *RedisStore) LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error) {
	fields, err := s.rdb.HGetAll(ctx, withdrawsKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load withdraws hash")
	}

	withdraws := make([]*model.WithdrawRequest, 0, len(fields))
	for _, raw := range fields {
		var w model.WithdrawRequest
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			continue
		}
		withdraws = append(withdraws, &w)
	}
	return withdraws, nil
}

func (s *RedisStore) SaveUser(ctx context.Context, user *model.UserAccount) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	return s.rdb.HSet(ctx, usersKey, user.ID, data).Err()
}

func (s *RedisStore) SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal withdraw request")
	}
	return s.rdb.HSet(ctx, withdrawsKey, req.ID, data).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
