package ports

import (
	"context"

	"github.com/predictprotocol/walletauth/core"
)

// NonceStore holds at most one live challenge per wallet address.
type NonceStore interface {
	// Issue upserts the challenge keyed by its wallet address, replacing any
	// prior challenge for that wallet.
	Issue(ctx context.Context, challenge *core.Challenge) error

	// Consume returns the current challenge for the address without deleting
	// it. Missing or expired challenges yield core.ErrChallengeNotFound.
	Consume(ctx context.Context, walletAddress string) (*core.Challenge, error)

	// Clear deletes the stored challenge and reports whether one was removed.
	// Callers that require single-use semantics must check removed: only the
	// request that actually deleted the challenge may proceed.
	Clear(ctx context.Context, walletAddress string) (removed bool, err error)
}
