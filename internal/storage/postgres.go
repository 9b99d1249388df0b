package storage

import (
	"context"
	"time"

	"TG_rewards_bot/internal/model"
	"TG_rewards_bot/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresStore is the heavyweight alternative to the JSON snapshot: one row
// per user and per withdraw request, upserted on save.
type PostgresStore struct {
	db *sqlx.DB
}

type userRow struct {
	ID               string     `db:"id"`
	Username         string     `db:"username"`
	FirstName        string     `db:"first_name"`
	FirstSeen        time.Time  `db:"first_seen"`
	LastActive       time.Time  `db:"last_active"`
	Points           int        `db:"points"`
	ReferredBy       string     `db:"referred_by"`
	Referrals        int        `db:"referrals"`
	LastClaimAt      *time.Time `db:"last_claim_at"`
	ClaimStreak      int        `db:"claim_streak"`
	LastEarnAt       *time.Time `db:"last_earn_at"`
	TaskClaims       []byte     `db:"task_claims"`
	JoinedChannels   []byte     `db:"joined_channels"`
	Blocked          bool       `db:"blocked"`
	Active           bool       `db:"active"`
	InteractionCount int        `db:"interaction_count"`
}

type withdrawRow struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	Method      string     `db:"method"`
	Account     string     `db:"account"`
	Amount      int        `db:"amount"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                TEXT PRIMARY KEY,
	username          TEXT NOT NULL DEFAULT '',
	first_name        TEXT NOT NULL DEFAULT '',
	first_seen        TIMESTAMPTZ NOT NULL,
	last_active       TIMESTAMPTZ NOT NULL,
	points            INT NOT NULL DEFAULT 0,
	referred_by       TEXT NOT NULL DEFAULT '',
	referrals         INT NOT NULL DEFAULT 0,
	last_claim_at     TIMESTAMPTZ,
	claim_streak      INT NOT NULL DEFAULT 0,
	last_earn_at      TIMESTAMPTZ,
	task_claims       JSONB NOT NULL DEFAULT '{}',
	joined_channels   JSONB NOT NULL DEFAULT '[]',
	blocked           BOOLEAN NOT NULL DEFAULT FALSE,
	active            BOOLEAN NOT NULL DEFAULT TRUE,
	interaction_count INT NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS withdraw_requests (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	method       TEXT NOT NULL,
	account      TEXT NOT NULL,
	amount       INT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);`

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "ensure schema")
	}

	logger.Logger().Info("connected to postgres store")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := t(tx); err != nil {
		if txErr := tx.Rollback(); txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) LoadUsers(ctx context.Context) (map[string]*model.UserAccount, error) {
	var rows []userRow
	query, args, err := squirrel.
		Select("*").
		From("users").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select users")
	}

	users := make(map[string]*model.UserAccount, len(rows))
	for _, row := range rows {
		u := &model.UserAccount{
			ID:               row.ID,
			Username:         row.Username,
			FirstName:        row.FirstName,
			FirstSeen:        row.FirstSeen,
			LastActive:       row.LastActive,
			Points:           row.Points,
			ReferredBy:       row.ReferredBy,
			ReferralCount:    row.Referrals,
			LastClaimAt:      row.LastClaimAt,
			ClaimStreak:      row.ClaimStreak,
			LastEarnAt:       row.LastEarnAt,
			Blocked:          row.Blocked,
			Active:           row.Active,
			InteractionCount: row.InteractionCount,
		}
		if len(row.TaskClaims) > 0 {
			_ = json.Unmarshal(row.TaskClaims, &u.TaskClaims)
		}
		if len(row.JoinedChannels) > 0 {
			_ = json.Unmarshal(row.JoinedChannels, &u.JoinedChannels)
		}
		users[u.ID] = u
	}
	return users, nil
}

func (s *PostgresStore) LoadWithdrawals(ctx context.Context) ([]*model.WithdrawRequest, error) {
	var rows []withdrawRow
	query, args, err := squirrel.
		Select("*").
		From("withdraw_requests").
		OrderBy("created_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select withdraw requests")
	}

	withdraws := make([]*model.WithdrawRequest, len(rows))
	for i, row := range rows {
		withdraws[i] = &model.WithdrawRequest{
			ID:          row.ID,
			UserID:      row.UserID,
			Method:      row.Method,
			Account:     row.Account,
			Amount:      row.Amount,
			Status:      model.WithdrawStatus(row.Status),
			CreatedAt:   row.CreatedAt,
			ProcessedAt: row.ProcessedAt,
		}
	}
	return withdraws, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, user *model.UserAccount) error {
	taskClaims, err := json.Marshal(user.TaskClaims)
	if err != nil {
		return errors.Wrap(err, "marshal task claims")
	}
	joined, err := json.Marshal(user.JoinedChannels)
	if err != nil {
		return errors.Wrap(err, "marshal joined channels")
	}

	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"id":                user.ID,
				"username":          user.Username,
				"first_name":        user.FirstName,
				"first_seen":        user.FirstSeen,
				"last_active":       user.LastActive,
				"points":            user.Points,
				"referred_by":       user.ReferredBy,
				"referrals":         user.ReferralCount,
				"last_claim_at":     user.LastClaimAt,
				"claim_streak":      user.ClaimStreak,
				"last_earn_at":      user.LastEarnAt,
				"task_claims":       taskClaims,
				"joined_channels":   joined,
				"blocked":           user.Blocked,
				"active":            user.Active,
				"interaction_count": user.InteractionCount,
			}).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				username = EXCLUDED.username,
				first_name = EXCLUDED.first_name,
				last_active = EXCLUDED.last_active,
				points = EXCLUDED.points,
				referred_by = EXCLUDED.referred_by,
				referrals = EXCLUDED.referrals,
				last_claim_at = EXCLUDED.last_claim_at,
				claim_streak = EXCLUDED.claim_streak,
				last_earn_at = EXCLUDED.last_earn_at,
				task_claims = EXCLUDED.task_claims,
				joined_channels = EXCLUDED.joined_channels,
				blocked = EXCLUDED.blocked,
				active = EXCLUDED.active,
				interaction_count = EXCLUDED.interaction_count`).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return errors.Wrap(err, "build user upsert query")
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "upsert user")
		}
		return nil
	})
}

func (s *PostgresStore) SaveWithdrawal(ctx context.Context, req *model.WithdrawRequest) error {
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("withdraw_requests").
			SetMap(map[string]interface{}{
				"id":           req.ID,
				"user_id":      req.UserID,
				"method":       req.Method,
				"account":      req.Account,
				"amount":       req.Amount,
				"status":       string(req.Status),
				"created_at":   req.CreatedAt,
				"processed_at": req.ProcessedAt,
			}).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				processed_at = EXCLUDED.processed_at`).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return errors.Wrap(err, "build withdraw upsert query")
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "upsert withdraw request")
		}
		return nil
	})
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
