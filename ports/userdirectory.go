package ports

import (
	"context"

	"github.com/predictprotocol/walletauth/core"
)

// UserDirectory is the find-or-create mapping from wallet address to an
// identity record, backed by the external relational store.
type UserDirectory interface {
	// FindByWallet looks up the identity for a lowercase wallet address and
	// returns core.ErrUserNotFound when there is none.
	FindByWallet(ctx context.Context, walletAddress string) (*core.User, error)

	// CreateForWallet inserts a fresh identity with a derived default
	// username. A duplicate insert for the same wallet must fail with
	// core.ErrUserExists, never create a second record.
	CreateForWallet(ctx context.Context, walletAddress string) (*core.User, error)

	// FindByID resolves the JWT subject back to an identity record.
	FindByID(ctx context.Context, id string) (*core.User, error)
}
