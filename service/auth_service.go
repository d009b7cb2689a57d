package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/predictprotocol/walletauth/core"
	"github.com/predictprotocol/walletauth/ethsig"
	"github.com/predictprotocol/walletauth/internal/metrics"
	"github.com/predictprotocol/walletauth/ports"
)

const (
	// DefaultChallengeTTL bounds how long an unconsumed challenge stays
	// acceptable. Expired challenges surface as ErrChallengeNotFound.
	DefaultChallengeTTL = 10 * time.Minute

	// nonceBytes of entropy per challenge, hex-encoded in the message.
	nonceBytes = 16

	messageFormat = "Sign this message to authenticate with Predict: %s"
)

// AuthService handles the wallet authentication protocol: challenge
// issuance, signature verification, identity resolution and token refresh.
type AuthService struct {
	nonces    ports.NonceStore
	users     ports.UserDirectory
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	log       *zap.Logger

	challengeTTL time.Duration
	now          func() time.Time
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithChallengeTTL overrides the default challenge lifetime.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *AuthService) { s.challengeTTL = ttl }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service. eventPub may be nil
// when no broker is configured.
func NewAuthService(
	nonces ports.NonceStore,
	users ports.UserDirectory,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	log *zap.Logger,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		nonces:       nonces,
		users:        users,
		tokenizer:    tokenizer,
		eventPub:     eventPub,
		log:          log,
		challengeTTL: DefaultChallengeTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueChallenge generates a new authentication challenge for a wallet,
// replacing any outstanding one for the same address.
func (s *AuthService) IssueChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	if !ethsig.IsValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	walletAddress := ethsig.Normalize(address)

	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(buf)

	now := s.now()
	challenge := &core.Challenge{
		WalletAddress: walletAddress,
		Nonce:         nonce,
		Message:       fmt.Sprintf(messageFormat, nonce),
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.challengeTTL),
	}

	if err := s.nonces.Issue(ctx, challenge); err != nil {
		s.log.Error("failed to store challenge", zap.String("wallet", walletAddress), zap.Error(err))
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	metrics.ChallengesIssued.Inc()
	s.log.Debug("challenge issued", zap.String("wallet", walletAddress))

	return challenge, nil
}

// VerifyLogin checks a signed challenge, resolves (or lazily creates) the
// identity record for the wallet, and mints a session token.
func (s *AuthService) VerifyLogin(ctx context.Context, address, signature, message string) (string, *core.User, error) {
	if !ethsig.IsValidAddress(address) {
		metrics.LoginAttempts.WithLabelValues("invalid_address").Inc()
		return "", nil, core.ErrInvalidAddress
	}
	walletAddress := ethsig.Normalize(address)

	// Recovery first: a bad signature should not reveal whether a challenge
	// exists for the address.
	recovered, err := ethsig.Recover(message, signature)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("bad_signature").Inc()
		s.log.Warn("signature recovery failed", zap.String("wallet", walletAddress), zap.Error(err))
		return "", nil, core.ErrInvalidSignature
	}

	if ethsig.Normalize(recovered.Hex()) != walletAddress {
		metrics.LoginAttempts.WithLabelValues("address_mismatch").Inc()
		s.log.Warn("recovered address does not match claim",
			zap.String("claimed", walletAddress),
			zap.String("recovered", ethsig.Normalize(recovered.Hex())))
		return "", nil, core.ErrAddressMismatch
	}

	challenge, err := s.nonces.Consume(ctx, walletAddress)
	if err != nil {
		if errors.Is(err, core.ErrChallengeNotFound) {
			metrics.LoginAttempts.WithLabelValues("no_challenge").Inc()
			return "", nil, core.ErrChallengeNotFound
		}
		return "", nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	if message != challenge.Message {
		metrics.LoginAttempts.WithLabelValues("message_mismatch").Inc()
		s.log.Warn("signed message does not match issued challenge", zap.String("wallet", walletAddress))
		return "", nil, core.ErrMessageMismatch
	}

	// Claim the challenge by deleting it. The delete is atomic, so of any
	// concurrent verifications for the same wallet exactly one proceeds and
	// the rest fail as if the challenge never existed.
	removed, err := s.nonces.Clear(ctx, walletAddress)
	if err != nil {
		return "", nil, fmt.Errorf("failed to clear challenge: %w", err)
	}
	if !removed {
		metrics.LoginAttempts.WithLabelValues("replay").Inc()
		return "", nil, core.ErrChallengeNotFound
	}

	usr, err := s.findOrCreateUser(ctx, walletAddress)
	if err != nil {
		return "", nil, err
	}

	token, session, err := s.tokenizer.Mint(usr.ID, walletAddress)
	if err != nil {
		return "", nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, walletAddress, usr.ID); err != nil {
			// The login already succeeded; a broker hiccup is not worth
			// failing the request over.
			s.log.Warn("failed to publish login event", zap.Error(err))
		}
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	s.log.Info("wallet authenticated",
		zap.String("wallet", walletAddress),
		zap.String("user_id", usr.ID),
		zap.String("token_id", session.TokenID))

	return token, usr, nil
}

// findOrCreateUser composes lookup and lazy creation. A losing racer sees
// ErrUserExists from the insert and retries the lookup once.
func (s *AuthService) findOrCreateUser(ctx context.Context, walletAddress string) (*core.User, error) {
	usr, err := s.users.FindByWallet(ctx, walletAddress)
	if err == nil {
		return usr, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}

	usr, err = s.users.CreateForWallet(ctx, walletAddress)
	if err == nil {
		s.log.Info("created identity for new wallet", zap.String("wallet", walletAddress), zap.String("user_id", usr.ID))
		return usr, nil
	}
	if !errors.Is(err, core.ErrUserExists) {
		return nil, fmt.Errorf("user creation failed: %w", err)
	}

	usr, err = s.users.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("user lookup after conflict failed: %w", err)
	}
	return usr, nil
}

// RefreshToken re-mints a session token from a still-valid one.
func (s *AuthService) RefreshToken(ctx context.Context, token string) (string, error) {
	newToken, session, err := s.tokenizer.Refresh(token)
	if err != nil {
		return "", err
	}

	s.log.Debug("session refreshed",
		zap.String("wallet", session.WalletAddress),
		zap.String("user_id", session.UserID))

	return newToken, nil
}

// ValidateToken checks a bearer token and returns its session.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.Session, error) {
	return s.tokenizer.Verify(token)
}

// ResolveUser re-resolves a session's subject against the user directory.
// This rejects structurally valid tokens that outlive a deleted identity.
func (s *AuthService) ResolveUser(ctx context.Context, session *core.Session) (*core.User, error) {
	return s.users.FindByID(ctx, session.UserID)
}

// AnnounceLogout broadcasts a logout so other instances can drop any cached
// state for the session. Tokens are stateless, so this is a notification,
// not a revocation.
func (s *AuthService) AnnounceLogout(ctx context.Context, session *core.Session) {
	if s.eventPub == nil {
		return
	}
	if err := s.eventPub.PublishLogout(ctx, session.WalletAddress, session.TokenID); err != nil {
		s.log.Warn("failed to publish logout event", zap.Error(err))
	}
}
