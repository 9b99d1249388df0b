package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"TG_rewards_bot/internal/model"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"TG_rewards_bot/pkg/logger"
)

const (
	defaultUsersPath     = "users.json"
	defaultWithdrawsPath = "withdraws.json"
)

// FileStore keeps the whole collection in two JSON documents: a map keyed by
// user id and an array of withdraw requests. Every save re-serializes the
// full collection, which is acceptable because the ledger is the single
// writer. A corrupt or missing file loads as an empty collection.
type FileStore struct {
	mu            sync.Mutex
	usersPath     string
	withdrawsPath string

	users     map[string]*model.UserAccount
	withdraws []*model.WithdrawRequest
}

func NewFileStore(cfg FileConfig) (*FileStore, error) {
	if cfg.UsersPath == "" {
		cfg.UsersPath = defaultUsersPath
	}
	if cfg.WithdrawsPath == "" {
		cfg.WithdrawsPath = defaultWithdrawsPath
	}
	return &FileStore{
		usersPath:     cfg.UsersPath,
		withdrawsPath: cfg.WithdrawsPath,
		users:         make(map[string]*model.UserAccount),
	}, nil
}

func (s *FileStore) LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]*model.UserAccount)
	data, err := os.ReadFile(s.usersPath)
	switch {
	case os.IsNotExist(err):
		// first run
	case err != nil:
		return nil, errors.Wrap(err, "read users file")
	case len(data) > 0:
		if jsonErr := json.Unmarshal(data, &users); jsonErr != nil {
			logger.Logger().Warn("users file is corrupt, starting with empty collection",
				zap.String("path", s.usersPath), zap.Error(jsonErr))
			users = make(map[string]*model.UserAccount)
		}
	}

	for id, u := range users {
		u.ID = id
	}
	s.users = users

	out := make(map[string]*model.UserAccount, len(users))
	for id, u := range users {
		out[id] = u.Clone()
	}
	return out, nil
}

func (s *FileStore) LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var withdraws []*model.WithdrawRequest
	data, err := os.ReadFile(s.withdrawsPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrap(err, "read withdraws file")
	case len(data) > 0:
		if jsonErr := json.Unmarshal(data, &withdraws); jsonErr != nil {
			logger.Logger().Warn("withdraws file is corrupt, starting with empty collection",
				zap.String("path", s.withdrawsPath), zap.Error(jsonErr))
			withdraws = nil
		}
	}
	s.withdraws = withdraws

	out := make([]*model.WithdrawRequest, len(withdraws))
	for i, w := range withdraws {
		out[i] = w.Clone()
	}
	return out, nil
}

func (s *FileStore) SaveUser(ctx context.Context, user *model.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user.Clone()
	return s.writeJSON(s.usersPath, s.users)
}

func (s *FileStore) SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, w := range s.withdraws {
		if w.ID == req.ID {
			s.withdraws[i] = req.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.withdraws = append(s.withdraws, req.Clone())
	}
	return s.writeJSON(s.withdrawsPath, s.withdraws)
}

// writeJSON writes to a temp file in the same directory and renames it over
// the target, so a crash mid-write cannot truncate the previous snapshot.
func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snapshot")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write snapshot")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close snapshot")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "replace snapshot")
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
