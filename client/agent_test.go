package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/predictprotocol/walletauth/adapters/nonce"
	"github.com/predictprotocol/walletauth/adapters/tokenizer"
	"github.com/predictprotocol/walletauth/adapters/userstore"
	"github.com/predictprotocol/walletauth/service"
	authhttp "github.com/predictprotocol/walletauth/transport/http"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tk, err := tokenizer.NewJWTTokenizer([]byte("agent-test-secret"))
	require.NoError(t, err)

	svc := service.NewAuthService(
		nonce.NewMemoryStore(),
		userstore.NewMemoryStore(),
		tk,
		nil,
		zap.NewNop(),
	)

	srv := httptest.NewServer(authhttp.SetupRouter(svc))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAgent(t *testing.T, baseURL string) (*Agent, *MemoryCredentials, Signer) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewLocalSigner(key)

	tr, err := NewTransport(TransportConfig{BaseURL: baseURL})
	require.NoError(t, err)

	store := NewMemoryCredentials()
	agent, err := NewAgent(tr, signer, store, zap.NewNop(), AgentConfig{})
	require.NoError(t, err)
	return agent, store, signer
}

func TestAgentLoginFlow(t *testing.T) {
	srv := newAuthServer(t)
	agent, store, signer := newTestAgent(t, srv.URL)

	events := agent.Subscribe()

	usr, err := agent.Login(context.Background())
	require.NoError(t, err)

	lower := strings.ToLower(signer.Address())
	require.Equal(t, lower, usr.WalletAddress)
	require.Equal(t, "user_"+lower[2:6], usr.Username)
	require.Equal(t, StateAuthenticated, agent.State())

	var seen []State
	for len(events) > 0 {
		seen = append(seen, <-events)
	}
	require.Equal(t, []State{
		StateNonceRequested,
		StateAwaitingSignature,
		StateVerifying,
		StateAuthenticated,
	}, seen)

	// The full session is persisted.
	for _, key := range []string{KeyToken, KeyUser, KeyWalletAddress, KeyAuthTimestamp} {
		v, ok := store.Get(key)
		require.True(t, ok, "missing stored key %s", key)
		require.NotEmpty(t, v)
	}

	var storedUser map[string]any
	rawUser, _ := store.Get(KeyUser)
	require.NoError(t, json.Unmarshal([]byte(rawUser), &storedUser))
	require.Equal(t, usr.ID, storedUser["id"])
}

func TestAgentLoginFailureReturnsToDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid wallet address"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	agent, store, _ := newTestAgent(t, srv.URL)

	_, err := agent.Login(context.Background())
	require.Error(t, err)
	require.Equal(t, StateDisconnected, agent.State())

	_, ok := store.Get(KeyToken)
	require.False(t, ok)
}

func TestAgentLogoutClearsCredentials(t *testing.T) {
	srv := newAuthServer(t)
	agent, store, _ := newTestAgent(t, srv.URL)

	_, err := agent.Login(context.Background())
	require.NoError(t, err)

	require.NoError(t, agent.Logout(context.Background()))
	require.Equal(t, StateLoggedOut, agent.State())
	require.Empty(t, agent.Token())
	require.Nil(t, agent.CurrentUser())

	for _, key := range []string{KeyToken, KeyUser, KeyWalletAddress, KeyAuthTimestamp} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %s must be cleared on logout", key)
	}
}

func TestAgentRefresh(t *testing.T) {
	srv := newAuthServer(t)
	agent, store, _ := newTestAgent(t, srv.URL)

	_, err := agent.Login(context.Background())
	require.NoError(t, err)
	before := agent.Token()

	require.NoError(t, agent.Refresh(context.Background()))
	require.Equal(t, StateAuthenticated, agent.State())
	require.NotEqual(t, before, agent.Token(), "refresh mints a new token")

	stored, ok := store.Get(KeyToken)
	require.True(t, ok)
	require.Equal(t, agent.Token(), stored)
}

func TestAgentRefreshRejectionLogsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token expired","reason":"expired"}`))
	}))
	defer srv.Close()

	agent, store, _ := newTestAgent(t, srv.URL)

	agent.mu.Lock()
	agent.token = "stale"
	agent.setState(StateAuthenticated)
	agent.mu.Unlock()
	require.NoError(t, store.SetAll(map[string]string{
		KeyToken:         "stale",
		KeyUser:          `{"id":"u1"}`,
		KeyWalletAddress: "0xabc",
		KeyAuthTimestamp: "0",
	}))

	err := agent.Refresh(context.Background())
	require.Error(t, err)
	require.Equal(t, StateLoggedOut, agent.State())

	for _, key := range []string{KeyToken, KeyUser, KeyWalletAddress, KeyAuthTimestamp} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %s must be cleared", key)
	}
}

func TestAgentLogoutWinsOverInflightRefresh(t *testing.T) {
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"stale-token"}`))
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Logged out"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	agent, store, _ := newTestAgent(t, srv.URL)

	// Seed an authenticated session directly.
	agent.mu.Lock()
	agent.token = "live-token"
	agent.setState(StateAuthenticated)
	agent.mu.Unlock()
	require.NoError(t, store.SetAll(map[string]string{
		KeyToken:         "live-token",
		KeyUser:          `{"id":"u1"}`,
		KeyWalletAddress: "0xabc",
		KeyAuthTimestamp: "0",
	}))

	refreshDone := make(chan error, 1)
	go func() { refreshDone <- agent.Refresh(context.Background()) }()

	// Wait for the refresh to park in the handler, then log out.
	require.Eventually(t, func() bool {
		return agent.State() == StateRefreshing
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, agent.Logout(context.Background()))

	close(release)
	require.NoError(t, <-refreshDone)

	// The stale refresh result did not resurrect the session.
	require.Equal(t, StateLoggedOut, agent.State())
	require.Empty(t, agent.Token())
	_, ok := store.Get(KeyToken)
	require.False(t, ok)
}

func TestAgentResume(t *testing.T) {
	srv := newAuthServer(t)
	agent, store, _ := newTestAgent(t, srv.URL)

	_, err := agent.Login(context.Background())
	require.NoError(t, err)

	// A fresh agent sharing the store picks the session back up.
	tr, err := NewTransport(TransportConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	resumed, err := NewAgent(tr, nil, store, zap.NewNop(), AgentConfig{})
	require.NoError(t, err)

	usr, err := resumed.Resume(context.Background())
	require.NoError(t, err)
	require.Equal(t, agent.CurrentUser().ID, usr.ID)
	require.Equal(t, StateAuthenticated, resumed.State())
}

func TestAgentResumeRejectedTokenClearsStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Token expired","reason":"expired"}`))
	}))
	defer srv.Close()

	agent, store, _ := newTestAgent(t, srv.URL)
	require.NoError(t, store.SetAll(map[string]string{
		KeyToken:         "expired-token",
		KeyUser:          `{"id":"u1"}`,
		KeyWalletAddress: "0xabc",
		KeyAuthTimestamp: "0",
	}))

	_, err := agent.Resume(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)

	for _, key := range []string{KeyToken, KeyUser, KeyWalletAddress, KeyAuthTimestamp} {
		_, ok := store.Get(key)
		require.False(t, ok, "key %s must be cleared", key)
	}
}

func TestAgentResumeWithoutSession(t *testing.T) {
	srv := newAuthServer(t)
	agent, _, _ := newTestAgent(t, srv.URL)

	_, err := agent.Resume(context.Background())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}
