// Package auth stores the GitHub API token in the system keychain with
// an environment-variable fallback.
package auth

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "ghsync"
	keyringKey     = "github_token"
	envToken       = "GITHUB_TOKEN"
)

var (
	// ErrTokenNotFound means no token exists in any store.
	ErrTokenNotFound = errors.New("no GitHub token found")
	// ErrStoreUnavailable means the backend cannot accept writes.
	ErrStoreUnavailable = errors.New("token store is read-only")
)

// TokenStore is the interface for storing and retrieving the API token.
type TokenStore interface {
	Store(token string) error
	Retrieve() (string, error)
	Delete() error
	Exists() bool
	Name() string
}

// KeyringStore keeps the token in the system keychain.
type KeyringStore struct{}

// NewKeyringStore probes keyring availability before returning a store.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := keyring.Set(keyringService, keyringKey, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve() (string, error) {
	token, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

func (k *KeyringStore) Delete() error {
	if err := keyring.Delete(keyringService, keyringKey); err != nil {
		if err == keyring.ErrNotFound {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists() bool {
	_, err := k.Retrieve()
	return err == nil
}

func (k *KeyringStore) Name() string { return "keyring" }

// EnvironmentStore reads the token from GITHUB_TOKEN. Read-only.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(token string) error { return ErrStoreUnavailable }

func (e *EnvironmentStore) Retrieve() (string, error) {
	token := os.Getenv(envToken)
	if token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (e *EnvironmentStore) Delete() error { return ErrStoreUnavailable }

func (e *EnvironmentStore) Exists() bool {
	return os.Getenv(envToken) != ""
}

func (e *EnvironmentStore) Name() string { return "environment" }

// Manager resolves the token across stores, keychain first.
type Manager struct {
	stores []TokenStore
}

// NewManager builds the store chain. A missing keyring backend is not an
// error; the environment fallback always exists.
func NewManager() *Manager {
	var stores []TokenStore
	if ks, err := NewKeyringStore(); err == nil {
		stores = append(stores, ks)
	}
	stores = append(stores, NewEnvironmentStore())
	return &Manager{stores: stores}
}

// Token returns the first token found along with the store that held it.
func (m *Manager) Token() (string, string, error) {
	for _, store := range m.stores {
		token, err := store.Retrieve()
		if err == nil {
			return token, store.Name(), nil
		}
		if !errors.Is(err, ErrTokenNotFound) {
			return "", "", err
		}
	}
	return "", "", ErrTokenNotFound
}

// Store writes the token to the first writable store.
func (m *Manager) Store(token string) error {
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStoreUnavailable) {
			return err
		}
	}
	return errors.New("no writable token store available")
}

// Delete removes the token from every store that holds it.
func (m *Manager) Delete() error {
	deleted := false
	for _, store := range m.stores {
		err := store.Delete()
		if err == nil {
			deleted = true
			continue
		}
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrStoreUnavailable) {
			continue
		}
		return err
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// Status reports which stores currently hold a token.
func (m *Manager) Status() map[string]bool {
	status := make(map[string]bool, len(m.stores))
	for _, store := range m.stores {
		status[store.Name()] = store.Exists()
	}
	return status
}
