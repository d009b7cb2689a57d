package userstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ports"
)

// MemoryStore is an in-memory implementation of the UserDirectory interface,
// used in tests. The map mutations happen under one lock, giving the same
// uniqueness guarantee the database constraint provides.
type MemoryStore struct {
	byWallet map[string]*core.User
	byID     map[string]*core.User
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory user directory
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byWallet: make(map[string]*core.User),
		byID:     make(map[string]*core.User),
	}
}

var _ ports.UserDirectory = (*MemoryStore)(nil)

// FindByWallet looks up the identity record for a lowercase wallet address
func (s *MemoryStore) FindByWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.byWallet[walletAddress]
	if !ok {
		return nil, core.ErrUserNotFound
	}

	u := *usr
	return &u, nil
}

// FindByID resolves an identity by its primary key
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.byID[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}

	u := *usr
	return &u, nil
}

// CreateForWallet inserts a fresh identity with a derived default username
func (s *MemoryStore) CreateForWallet(ctx context.Context, walletAddress string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byWallet[walletAddress]; ok {
		return nil, core.ErrUserExists
	}

	now := time.Now()
	usr := &core.User{
		ID:            uuid.New().String(),
		WalletAddress: walletAddress,
		Username:      core.DefaultUsername(walletAddress),
		TokenBalance:  decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.byWallet[walletAddress] = usr
	s.byID[usr.ID] = usr

	u := *usr
	return &u, nil
}

// Delete removes an identity record. Tests use this to simulate tokens that
// outlive a deleted identity.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if usr, ok := s.byID[id]; ok {
		delete(s.byWallet, usr.WalletAddress)
		delete(s.byID, id)
	}
}
