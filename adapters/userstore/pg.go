package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ports"
)

const pgUniqueViolation = "23505"

// PgStore is a postgres implementation of the UserDirectory backed by bun.
type PgStore struct {
	db *bun.DB
}

// NewPgStore creates a new postgres user directory
func NewPgStore(db *bun.DB) *PgStore {
	return &PgStore{db: db}
}

var _ ports.UserDirectory = (*PgStore)(nil)

// FindByWallet looks up the identity record for a lowercase wallet address
func (s *PgStore) FindByWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("wallet_address = ?", walletAddress).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(dao), nil
}

// FindByID resolves an identity by its primary key
func (s *PgStore) FindByID(ctx context.Context, id string) (*core.User, error) {
	dao := new(UserDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUser(dao), nil
}

// CreateForWallet inserts a fresh identity with a derived default username.
// The unique constraint on wallet_address turns racing inserts into
// core.ErrUserExists for every caller but the first.
func (s *PgStore) CreateForWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	now := time.Now()
	usr := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: walletAddress,
		Username:      core.DefaultUsername(walletAddress),
		TokenBalance:  decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := s.db.NewInsert().
		Model(toUserDao(usr)).
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
			return nil, core.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return usr, nil
}
