package tokenizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predictprotocol/walletauth/core"
)

var testSecret = []byte("test-secret-not-for-production")

func TestNewJWTTokenizerRequiresSecret(t *testing.T) {
	_, err := NewJWTTokenizer(nil)
	require.Error(t, err)

	_, err = NewJWTTokenizer([]byte{})
	require.Error(t, err)
}

func TestMintAndVerify(t *testing.T) {
	tk, err := NewJWTTokenizer(testSecret)
	require.NoError(t, err)

	token, minted, err := tk.Mint("user-1", "0xabc")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, minted.TokenID)

	session, err := tk.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, "0xabc", session.WalletAddress)
	require.Equal(t, minted.TokenID, session.TokenID)
}

func TestVerifyWrongSecret(t *testing.T) {
	tk, err := NewJWTTokenizer(testSecret)
	require.NoError(t, err)

	token, _, err := tk.Mint("user-1", "0xabc")
	require.NoError(t, err)

	other, err := NewJWTTokenizer([]byte("a-different-secret"))
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	tk, err := NewJWTTokenizer(testSecret)
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tk.Verify(bad)
		require.ErrorIs(t, err, core.ErrInvalidToken)
	}
}

func TestExpiryBoundary(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	tk, err := NewJWTTokenizer(testSecret, WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	token, _, err := tk.Mint("user-1", "0xabc")
	require.NoError(t, err)

	// One second inside the 7-day window.
	clock = issued.Add(7*24*time.Hour - time.Second)
	_, err = tk.Verify(token)
	require.NoError(t, err)

	// One second past it.
	clock = issued.Add(7*24*time.Hour + time.Second)
	_, err = tk.Verify(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestRefreshExtendsExpiry(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	tk, err := NewJWTTokenizer(testSecret, WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	token, _, err := tk.Mint("user-1", "0xabc")
	require.NoError(t, err)

	clock = issued.Add(6 * 24 * time.Hour)
	newToken, session, err := tk.Refresh(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, "0xabc", session.WalletAddress)
	require.Equal(t, clock.Add(DefaultSessionTTL).Unix(), session.ExpiresAt.Unix())

	// The old token would have died at day 7; the new one survives past it.
	clock = issued.Add(8 * 24 * time.Hour)
	_, err = tk.Verify(newToken)
	require.NoError(t, err)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	tk, err := NewJWTTokenizer(testSecret, WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	token, _, err := tk.Mint("user-1", "0xabc")
	require.NoError(t, err)

	clock = issued.Add(8 * 24 * time.Hour)
	_, _, err = tk.Refresh(token)
	require.ErrorIs(t, err, core.ErrTokenExpired)
}
