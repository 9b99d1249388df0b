package storage

import (
	"context"
	"fmt"

	"TG_rewards_bot/internal/model"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// Store persists the user-account collection and the withdraw request list.
// The ledger serializes all writes, so implementations only need to be safe
// against their own concurrent reads.
type Store interface {
	LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error)
	LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error)
	SaveUser(ctx context.Context, user *model.UserAccount) error
	SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error
	Close() error
}

type Config struct {
	Backend  string         `yaml:"backend"` // file | redis | postgres
	File     FileConfig     `yaml:"file"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type FileConfig struct {
	UsersPath     string `yaml:"usersPath"`
	WithdrawsPath string `yaml:"withdrawsPath"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func (c *PostgresConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// New selects the backend by config. The JSON file store is the default.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.File)
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "postgres":
		return NewPostgresStore(cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
