package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/predictprotocol/walletauth/core"
)

// State is the agent's position in the login lifecycle.
type State string

const (
	StateDisconnected      State = "disconnected"
	StateNonceRequested    State = "nonce_requested"
	StateAwaitingSignature State = "awaiting_signature"
	StateVerifying         State = "verifying"
	StateAuthenticated     State = "authenticated"
	StateRefreshing        State = "refreshing"
	StateLoggedOut         State = "logged_out"
)

// ErrNotAuthenticated is returned by operations that need a live session.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// AgentConfig tunes the auth agent.
type AgentConfig struct {
	RefreshInterval time.Duration `default:"30m"`
}

// Agent drives the wallet login flow against the auth API and keeps the
// session fresh in the background.
type Agent struct {
	transport *Transport
	signer    Signer
	store     CredentialStore
	log       *zap.Logger
	cfg       AgentConfig

	mu           sync.Mutex
	state        State
	user         *core.User
	token        string
	refreshTimer *time.Timer

	// generation invalidates in-flight refreshes. Logout bumps it, so a
	// refresh that completes afterwards must not resurrect the session.
	generation uint64

	subsMu sync.Mutex
	subs   []chan State

	now func() time.Time
}

// NewAgent builds an agent. The logger may not be nil; pass zap.NewNop()
// to silence it.
func NewAgent(transport *Transport, signer Signer, store CredentialStore, log *zap.Logger, cfg AgentConfig) (*Agent, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply agent defaults: %w", err)
	}

	return &Agent{
		transport: transport,
		signer:    signer,
		store:     store,
		log:       log,
		cfg:       cfg,
		state:     StateDisconnected,
		now:       time.Now,
	}, nil
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// CurrentUser returns the authenticated user, or nil.
func (a *Agent) CurrentUser() *core.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// Token returns the current session token, or empty.
func (a *Agent) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// Subscribe returns a channel that receives every state transition. The
// channel is buffered; slow consumers drop events rather than block the
// agent.
func (a *Agent) Subscribe() <-chan State {
	ch := make(chan State, 16)
	a.subsMu.Lock()
	a.subs = append(a.subs, ch)
	a.subsMu.Unlock()
	return ch
}

func (a *Agent) setState(s State) {
	a.state = s
	a.subsMu.Lock()
	for _, ch := range a.subs {
		select {
		case ch <- s:
		default:
		}
	}
	a.subsMu.Unlock()
}

// Login runs the full challenge-sign-verify flow and persists the
// session. Any failure returns the agent to the disconnected state.
func (a *Agent) Login(ctx context.Context) (*core.User, error) {
	address := a.signer.Address()

	a.mu.Lock()
	a.setState(StateNonceRequested)
	a.mu.Unlock()

	challenge, err := a.transport.RequestChallenge(ctx, address)
	if err != nil {
		a.fail("challenge request failed", err)
		return nil, err
	}

	a.mu.Lock()
	a.setState(StateAwaitingSignature)
	a.mu.Unlock()

	signature, err := a.signer.SignMessage(challenge.Message)
	if err != nil {
		a.fail("signing rejected", err)
		return nil, fmt.Errorf("signing rejected: %w", err)
	}

	a.mu.Lock()
	a.setState(StateVerifying)
	a.mu.Unlock()

	resp, err := a.transport.VerifySignature(ctx, address, signature, challenge.Message)
	if err != nil {
		a.fail("verification failed", err)
		return nil, err
	}

	if err := a.persistSession(resp.Token, resp.User); err != nil {
		a.fail("failed to persist session", err)
		return nil, err
	}

	a.mu.Lock()
	a.token = resp.Token
	a.user = resp.User
	a.generation++
	a.setState(StateAuthenticated)
	a.scheduleRefreshLocked()
	a.mu.Unlock()

	a.log.Info("authenticated", zap.String("wallet", resp.User.WalletAddress))
	return resp.User, nil
}

func (a *Agent) fail(msg string, err error) {
	a.log.Warn(msg, zap.Error(err))
	a.mu.Lock()
	a.setState(StateDisconnected)
	a.mu.Unlock()
}

func (a *Agent) persistSession(token string, usr *core.User) error {
	rawUser, err := json.Marshal(usr)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	return a.store.SetAll(map[string]string{
		KeyToken:         token,
		KeyUser:          string(rawUser),
		KeyWalletAddress: usr.WalletAddress,
		KeyAuthTimestamp: strconv.FormatInt(a.now().Unix(), 10),
	})
}

// Resume restores a persisted session and validates it against the
// server. An expired or rejected token clears the stored credentials.
func (a *Agent) Resume(ctx context.Context) (*core.User, error) {
	token, ok := a.store.Get(KeyToken)
	if !ok || token == "" {
		return nil, ErrNotAuthenticated
	}

	usr, err := a.transport.FetchProfile(ctx, token)
	if err != nil {
		if IsAuthError(err) {
			a.log.Info("stored session rejected, clearing credentials", zap.Error(err))
			if clearErr := a.store.ClearSession(); clearErr != nil {
				a.log.Error("failed to clear credentials", zap.Error(clearErr))
			}
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	a.mu.Lock()
	a.token = token
	a.user = usr
	a.generation++
	a.setState(StateAuthenticated)
	a.scheduleRefreshLocked()
	a.mu.Unlock()

	return usr, nil
}

// scheduleRefreshLocked arms the background refresh timer. Callers hold
// a.mu.
func (a *Agent) scheduleRefreshLocked() {
	if a.refreshTimer != nil {
		a.refreshTimer.Stop()
	}
	gen := a.generation
	a.refreshTimer = time.AfterFunc(a.cfg.RefreshInterval, func() {
		if err := a.refresh(context.Background(), gen); err != nil {
			a.log.Warn("background refresh failed", zap.Error(err))
		}
	})
}

// Refresh exchanges the session token immediately.
func (a *Agent) Refresh(ctx context.Context) error {
	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()
	return a.refresh(ctx, gen)
}

func (a *Agent) refresh(ctx context.Context, gen uint64) error {
	a.mu.Lock()
	if a.generation != gen || a.state != StateAuthenticated {
		a.mu.Unlock()
		return nil
	}
	token := a.token
	a.setState(StateRefreshing)
	a.mu.Unlock()

	fresh, err := a.transport.RefreshToken(ctx, token)

	a.mu.Lock()
	defer a.mu.Unlock()

	// The session may have been logged out while the request was in
	// flight. The stale result is discarded.
	if a.generation != gen {
		return nil
	}

	if err != nil {
		if IsAuthError(err) {
			a.clearSessionLocked()
			a.setState(StateLoggedOut)
			return fmt.Errorf("session no longer valid: %w", err)
		}
		a.setState(StateAuthenticated)
		a.scheduleRefreshLocked()
		return err
	}

	a.token = fresh
	if a.user != nil {
		if persistErr := a.persistSession(fresh, a.user); persistErr != nil {
			a.log.Error("failed to persist refreshed session", zap.Error(persistErr))
		}
	}
	a.setState(StateAuthenticated)
	a.scheduleRefreshLocked()
	return nil
}

// Logout ends the session. Stored credentials are removed first so a
// crash mid-logout cannot leave a usable session behind; the server
// notification is best effort.
func (a *Agent) Logout(ctx context.Context) error {
	a.mu.Lock()
	token := a.token
	a.generation++
	if a.refreshTimer != nil {
		a.refreshTimer.Stop()
		a.refreshTimer = nil
	}
	a.clearSessionLocked()
	a.setState(StateLoggedOut)
	a.mu.Unlock()

	if token != "" {
		if err := a.transport.Logout(ctx, token); err != nil {
			a.log.Warn("server logout failed", zap.Error(err))
		}
	}
	return nil
}

// clearSessionLocked wipes in-memory and stored credentials. Callers
// hold a.mu.
func (a *Agent) clearSessionLocked() {
	a.token = ""
	a.user = nil
	if err := a.store.ClearSession(); err != nil {
		a.log.Error("failed to clear credentials", zap.Error(err))
	}
}
