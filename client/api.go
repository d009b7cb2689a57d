package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/predictprotocol/walletauth/core"
)

// ChallengeResponse is the payload of a nonce request.
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LoginResponse is the payload of a successful verification.
type LoginResponse struct {
	Token string     `json:"token"`
	User  *core.User `json:"user"`
}

// RequestChallenge fetches a fresh signing challenge for the address.
func (t *Transport) RequestChallenge(ctx context.Context, address string) (*ChallengeResponse, error) {
	var out ChallengeResponse
	path := "/api/auth/nonce?address=" + url.QueryEscape(address)
	if err := t.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifySignature submits the signed challenge and opens a session.
func (t *Transport) VerifySignature(ctx context.Context, address, signature, message string) (*LoginResponse, error) {
	in := map[string]string{
		"address":   address,
		"signature": signature,
		"message":   message,
	}
	var out LoginResponse
	if err := t.do(ctx, http.MethodPost, "/api/auth/verify", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges the current token for a fresh one.
func (t *Transport) RefreshToken(ctx context.Context, token string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := t.do(ctx, http.MethodPost, "/api/auth/refresh", token, nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// FetchProfile loads the authenticated user's profile.
func (t *Transport) FetchProfile(ctx context.Context, token string) (*core.User, error) {
	var out struct {
		User *core.User `json:"user"`
	}
	if err := t.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Logout tells the server the session is over. Best effort.
func (t *Transport) Logout(ctx context.Context, token string) error {
	return t.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}
