package ports

import "github.com/predictprotocol/walletauth/core"

// Tokenizer mints and verifies self-contained session tokens
type Tokenizer interface {
	// Mint produces a signed, time-bounded token for the given identity.
	Mint(userID, walletAddress string) (token string, session *core.Session, err error)

	// Verify checks signature and expiry. Expiry is reported as
	// core.ErrTokenExpired, every other failure as core.ErrInvalidToken, so
	// callers can surface distinct messages.
	Verify(token string) (*core.Session, error)

	// Refresh re-mints a token with the same claims and a fresh expiry. The
	// input must still be valid; expired or malformed tokens are rejected.
	Refresh(token string) (newToken string, session *core.Session, err error)
}
