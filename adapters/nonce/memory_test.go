package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predictprotocol/walletauth/core"
)

func testChallenge(addr string, ttl time.Duration) *core.Challenge {
	now := time.Now()
	return &core.Challenge{
		WalletAddress: addr,
		Nonce:         "deadbeef",
		Message:       "Sign this message to authenticate with Predict: deadbeef",
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

func TestMemoryStoreIssueConsume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	challenge := testChallenge("0xabc", 10*time.Minute)
	require.NoError(t, store.Issue(ctx, challenge))

	got, err := store.Consume(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, challenge.Nonce, got.Nonce)
	require.Equal(t, challenge.Message, got.Message)

	// Consume does not delete.
	_, err = store.Consume(ctx, "0xabc")
	require.NoError(t, err)
}

func TestMemoryStoreUnknownWallet(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Consume(context.Background(), "0xmissing")
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := testChallenge("0xabc", 10*time.Minute)
	require.NoError(t, store.Issue(ctx, first))

	second := testChallenge("0xabc", 10*time.Minute)
	second.Nonce = "cafebabe"
	second.Message = "Sign this message to authenticate with Predict: cafebabe"
	require.NoError(t, store.Issue(ctx, second))

	got, err := store.Consume(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, "cafebabe", got.Nonce, "a new challenge must replace the prior one")
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Issue(ctx, testChallenge("0xabc", 10*time.Minute)))

	removed, err := store.Clear(ctx, "0xabc")
	require.NoError(t, err)
	require.True(t, removed)

	// Idempotent when absent.
	removed, err = store.Clear(ctx, "0xabc")
	require.NoError(t, err)
	require.False(t, removed)

	_, err = store.Consume(ctx, "0xabc")
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}

func TestMemoryStoreExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	challenge := testChallenge("0xabc", 10*time.Minute)
	require.NoError(t, store.Issue(ctx, challenge))

	store.now = func() time.Time { return challenge.ExpiresAt.Add(time.Second) }

	_, err := store.Consume(ctx, "0xabc")
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}
