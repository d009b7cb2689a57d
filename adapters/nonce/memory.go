package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ports"
)

// MemoryStore is an in-memory implementation of the NonceStore interface,
// used in tests and single-instance deployments.
type MemoryStore struct {
	challenges map[string]*core.Challenge
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMemoryStore creates a new in-memory nonce store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*core.Challenge),
		now:        time.Now,
	}
}

var _ ports.NonceStore = (*MemoryStore)(nil)

// Issue upserts the challenge keyed by wallet address, replacing any prior one
func (s *MemoryStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *challenge
	s.challenges[challenge.WalletAddress] = &c
	return nil
}

// Consume returns the current challenge without deleting it
func (s *MemoryStore) Consume(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[walletAddress]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}

	// Expired-but-unconsumed challenges are reported as missing.
	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeNotFound
	}

	c := *challenge
	return &c, nil
}

// Clear deletes the stored challenge, reporting whether one was removed
func (s *MemoryStore) Clear(ctx context.Context, walletAddress string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.challenges[walletAddress]
	delete(s.challenges, walletAddress)
	return ok, nil
}
