package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage keys for the persisted session. Logout removes all of them
// together; a partial credential set is never left behind.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyWalletAddress = "walletAddress"
	KeyAuthTimestamp = "authTimestamp"
)

var sessionKeys = []string{KeyToken, KeyUser, KeyWalletAddress, KeyAuthTimestamp}

// CredentialStore persists the session between runs.
type CredentialStore interface {
	Get(key string) (string, bool)
	SetAll(values map[string]string) error
	ClearSession() error
}

// MemoryCredentials keeps credentials in memory. Used in tests and for
// ephemeral agents.
type MemoryCredentials struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryCredentials() *MemoryCredentials {
	return &MemoryCredentials{values: make(map[string]string)}
}

func (m *MemoryCredentials) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryCredentials) SetAll(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryCredentials) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range sessionKeys {
		delete(m.values, k)
	}
	return nil
}

// FileCredentials stores credentials as a JSON document on disk. Writes
// go through a temp file and rename so a crash never leaves a torn
// credential set.
type FileCredentials struct {
	mu   sync.Mutex
	path string
}

func NewFileCredentials(path string) *FileCredentials {
	return &FileCredentials{path: path}
}

func (f *FileCredentials) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return values, nil
}

func (f *FileCredentials) save(values map[string]string) error {
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (f *FileCredentials) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

func (f *FileCredentials) SetAll(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return f.save(current)
}

func (f *FileCredentials) ClearSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, err := f.load()
	if err != nil {
		return err
	}
	for _, k := range sessionKeys {
		delete(current, k)
	}
	return f.save(current)
}
