package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps tokens in a 0600 JSON file, for hosts without a keychain.
// Like the keyring store, each backend host has its own entry.
type FileStore struct {
	path string
	key  string
	mu   sync.Mutex
}

// credentialFile maps backend host to bearer token
type credentialFile struct {
	Tokens map[string]string `json:"tokens"`
}

// NewFileStore creates a file store at path for the backend at apiURL
func NewFileStore(path, apiURL string) *FileStore {
	key := backendHost(apiURL)
	if key == "" {
		key = TokenKey
	}
	return &FileStore{path: path, key: key}
}

// DefaultCredentialsPath returns ~/.config/labres/credentials.json
func DefaultCredentialsPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "labres", "credentials.json"), nil
}

func (s *FileStore) read() (*credentialFile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &credentialFile{Tokens: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if f.Tokens == nil {
		f.Tokens = map[string]string{}
	}
	return &f, nil
}

func (s *FileStore) write(f *credentialFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

// SaveToken writes the token for this store's backend
func (s *FileStore) SaveToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.Tokens[s.key] = token
	return s.write(f)
}

// LoadToken reads the token, returning ErrTokenNotFound when absent
func (s *FileStore) LoadToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", err
	}
	token, ok := f.Tokens[s.key]
	if !ok || token == "" {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// DeleteToken removes the token; deleting a missing token is not an error
func (s *FileStore) DeleteToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := f.Tokens[s.key]; !ok {
		return nil
	}
	delete(f.Tokens, s.key)
	return s.write(f)
}
