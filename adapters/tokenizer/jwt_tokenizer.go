package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ports"
)

const AudienceSession = "session:access"

// DefaultSessionTTL is how long a minted session token stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

// JWTTokenizer implements the Tokenizer interface using HS256 JWTs signed
// with a server-held secret.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a JWTTokenizer.
type Option func(*JWTTokenizer)

// WithTTL overrides the default session lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(t *JWTTokenizer) { t.ttl = ttl }
}

// WithClock overrides the time source, for expiry boundary tests.
func WithClock(now func() time.Time) Option {
	return func(t *JWTTokenizer) { t.now = now }
}

// NewJWTTokenizer creates a new JWT tokenizer. An empty secret is a
// configuration error: issuing unsigned or guessable tokens is worse than
// refusing to serve.
func NewJWTTokenizer(secret []byte, opts ...Option) (*JWTTokenizer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must not be empty")
	}

	t := &JWTTokenizer{
		secret: secret,
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// Mint produces a signed session token for the given identity
func (t *JWTTokenizer) Mint(userID, walletAddress string) (string, *core.Session, error) {
	now := t.now()
	session := &core.Session{
		UserID:        userID,
		WalletAddress: walletAddress,
		TokenID:       uuid.New().String(),
		IssuedAt:      now,
		ExpiresAt:     now.Add(t.ttl),
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        session.TokenID,
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
		WalletAddress: session.WalletAddress,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, session, nil
}

// Verify checks signature and expiry and returns the embedded session
func (t *JWTTokenizer) Verify(tokenStr string) (*core.Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienceSession),
		jwt.WithTimeFunc(t.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		// Expiry gets its own error so callers can tell the user to log in
		// again rather than report a malformed credential.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, core.ErrInvalidToken
	}

	session := &core.Session{
		UserID:        claims.Subject,
		WalletAddress: claims.WalletAddress,
		TokenID:       claims.ID,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}

	return session, nil
}

// Refresh re-mints a token with the same claims and a fresh expiry. There is
// no separate refresh token: the still-valid access token itself authorizes
// the re-mint.
func (t *JWTTokenizer) Refresh(tokenStr string) (string, *core.Session, error) {
	session, err := t.Verify(tokenStr)
	if err != nil {
		return "", nil, err
	}

	return t.Mint(session.UserID, session.WalletAddress)
}
