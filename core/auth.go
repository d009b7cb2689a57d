package core

import "time"

// Challenge represents an authentication challenge issued for a wallet
type Challenge struct {
	WalletAddress string    // Ethereum address the challenge was issued for, lowercase
	Nonce         string    // Random nonce embedded in the message
	Message       string    // Full human-readable message the wallet signs
	IssuedAt      time.Time // When the challenge was created
	ExpiresAt     time.Time // When the challenge stops being acceptable
}

// Expired reports whether the challenge is past its TTL.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated user session as carried by an access token
type Session struct {
	UserID        string    // Identity record ID, used as the JWT subject
	WalletAddress string    // Wallet address bound to the session, lowercase
	TokenID       string    // Unique token identifier (jti)
	IssuedAt      time.Time // When the token was minted
	ExpiresAt     time.Time // When the token expires
}
