package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "labres-cli"

	// TokenKey is the fixed key the bearer token is stored under
	TokenKey = "access_token"
)

// ErrTokenNotFound is returned when no credential has been stored
var ErrTokenNotFound = errors.New("not authenticated. Please run 'labres login' first")

// TokenStore defines the interface for credential storage operations.
// This allows us to swap the keyring for a file or memory store.
type TokenStore interface {
	SaveToken(token string) error
	LoadToken() (string, error)
	DeleteToken() error
}

// HasToken reports whether the store currently holds a non-empty credential
func HasToken(store TokenStore) bool {
	token, err := store.LoadToken()
	return err == nil && token != ""
}

// KeyringStore persists the token in the OS keychain/credential manager
type KeyringStore struct {
	service string
}

// NewKeyringStore creates a keyring store scoped to one backend, so switching
// servers does not leak a token from one backend to another
func NewKeyringStore(apiURL string) *KeyringStore {
	return &KeyringStore{service: keyringService(apiURL)}
}

func keyringService(apiURL string) string {
	host := backendHost(apiURL)
	if host == "" {
		return service
	}
	return fmt.Sprintf("%s:%s", service, host)
}

// backendHost is the lower-cased host:port of apiURL, or "" if it has none
func backendHost(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SaveToken persists the token securely in the OS keychain/credential manager
func (s *KeyringStore) SaveToken(token string) error {
	if err := keyring.Set(s.service, TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the token from the OS keychain/credential manager
func (s *KeyringStore) LoadToken() (string, error) {
	token, err := keyring.Get(s.service, TokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the token from the OS keychain/credential manager
func (s *KeyringStore) DeleteToken() error {
	if err := keyring.Delete(s.service, TokenKey); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
