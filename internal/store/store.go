// Package store persists users and enforces the monthly analysis quota.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                     BIGSERIAL PRIMARY KEY,
	email                  TEXT NOT NULL UNIQUE,
	username               TEXT NOT NULL UNIQUE,
	hashed_password        TEXT NOT NULL,
	subscription_tier      TEXT NOT NULL DEFAULT 'FREE',
	subscription_status    TEXT NOT NULL DEFAULT 'inactive',
	stripe_customer_id     TEXT UNIQUE,
	stripe_subscription_id TEXT UNIQUE,
	analyses_this_month    INTEGER NOT NULL DEFAULT 0,
	last_reset_date        TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS users_email_idx ON users (email);
CREATE INDEX IF NOT EXISTS users_username_idx ON users (username);
`

const userColumns = `id, email, username, hashed_password, subscription_tier, subscription_status,
	stripe_customer_id, stripe_subscription_id, analyses_this_month, last_reset_date, created_at, updated_at`

// Connect opens a pgx pool and pings it before returning.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

type Store struct {
	pool      *pgxpool.Pool
	freeLimit int
	now       func() time.Time
}

func New(pool *pgxpool.Pool, freeLimit int) *Store {
	return &Store{pool: pool, freeLimit: freeLimit, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

// ConsumeAnalysis counts one analysis against the user's monthly quota.
// The row is locked for the duration of the transaction so concurrent
// requests for the same user serialize on it.
func (s *Store) ConsumeAnalysis(ctx context.Context, username string) (User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return User{}, fmt.Errorf("begin quota tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1 FOR UPDATE`, username))
	if err != nil {
		return User{}, err
	}

	updated, err := ApplyUsage(user, s.now(), s.freeLimit)
	if err != nil {
		return user, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET analyses_this_month = $1, last_reset_date = $2, updated_at = $3
		WHERE id = $4`,
		updated.AnalysesThisMonth, updated.LastResetDate, updated.UpdatedAt, updated.ID)
	if err != nil {
		return User{}, fmt.Errorf("update usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("commit quota tx: %w", err)
	}
	return updated, nil
}

// Status reports the user's tier and usage. A pending monthly reset is
// reflected in the counter without being written back.
func (s *Store) Status(ctx context.Context, username string) (SubscriptionStatus, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return SubscriptionStatus{}, err
	}
	return StatusOf(rollover(user, s.now()), s.freeLimit), nil
}

// CreateUser inserts a FREE user. Password hashing is the caller's concern.
func (s *Store) CreateUser(ctx context.Context, email, username, hashedPassword string) (User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, email, username, hashedPassword)
	return scanUser(row)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	var tier string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &tier, &u.SubscriptionStatus,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.AnalysesThisMonth, &u.LastResetDate, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Tier = Tier(tier)
	return u, nil
}
