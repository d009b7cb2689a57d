package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creasty/defaults"
)

// ErrOffline is returned when the agent knows there is no connectivity
// and aborts without issuing the request.
var ErrOffline = errors.New("client: network unavailable")

// APIError carries the status and decoded error payload of a failed call.
type APIError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether the failure invalidates the stored session.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// TransportConfig tunes the retrying HTTP transport.
type TransportConfig struct {
	BaseURL        string
	MaxAttempts    int           `default:"3"`
	RetryBaseDelay time.Duration `default:"300ms"`
	RequestTimeout time.Duration `default:"10s"`
}

// Transport issues JSON requests against the auth API with bounded
// retries. Server errors and transport failures are retried with
// doubling delays; 4xx responses fail immediately.
type Transport struct {
	cfg    TransportConfig
	client *http.Client

	// sleep and online are swappable for tests.
	sleep  func(time.Duration)
	online func() bool
}

// NewTransport builds a transport for the given API base URL.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply transport defaults: %w", err)
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}

	return &Transport{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		sleep:  time.Sleep,
		online: func() bool { return true },
	}, nil
}

func retryableStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

// do runs one JSON round trip with retries. in may be nil for empty
// bodies and out may be nil when the response body is irrelevant.
func (t *Transport) do(ctx context.Context, method, path, token string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	delay := t.cfg.RetryBaseDelay

	for attempt := 0; attempt < t.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			t.sleep(delay)
			delay *= 2
		}

		if !t.online() {
			return ErrOffline
		}

		done, err := t.roundTrip(ctx, method, path, token, payload, out)
		if done {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("request failed after %d attempts: %w", t.cfg.MaxAttempts, lastErr)
}

// roundTrip performs a single attempt. done is false when the failure
// is retryable.
func (t *Transport) roundTrip(ctx context.Context, method, path, token string, payload []byte, out any) (done bool, err error) {
	req, err := http.NewRequestWithContext(ctx, method, t.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return true, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var decoded struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
			apiErr.Reason = decoded.Reason
		}
		return !retryableStatus(resp.StatusCode), apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return true, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	return true, nil
}
