package userstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/predictprotocol/walletauth/core"
)

func TestMemoryStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	usr, err := store.CreateForWallet(ctx, "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12")
	require.NoError(t, err)
	require.NotEmpty(t, usr.ID)
	require.Equal(t, "user_ab12", usr.Username)

	found, err := store.FindByWallet(ctx, "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12")
	require.NoError(t, err)
	require.Equal(t, usr.ID, found.ID)

	byID, err := store.FindByID(ctx, usr.ID)
	require.NoError(t, err)
	require.Equal(t, usr.WalletAddress, byID.WalletAddress)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.FindByWallet(ctx, "0xmissing")
	require.ErrorIs(t, err, core.ErrUserNotFound)

	_, err = store.FindByID(ctx, "nope")
	require.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestMemoryStoreDuplicateWallet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.CreateForWallet(ctx, "0xabc")
	require.NoError(t, err)

	_, err = store.CreateForWallet(ctx, "0xabc")
	require.ErrorIs(t, err, core.ErrUserExists)
}

func TestMemoryStoreConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.CreateForWallet(ctx, "0xracy"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created, "exactly one create must win the race")
}
