// Package session holds the client-side view of who is logged in.
package session

import (
	"sync"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/models"
)

// Snapshot is a point-in-time copy of the session state
type Snapshot struct {
	User            *models.User
	IsAuthenticated bool
	IsAdmin         bool
}

// Store holds the current user and the flags derived from it.
// IsAuthenticated and IsAdmin are always recomputed from the user, never set directly.
type Store struct {
	mu              sync.RWMutex
	user            *models.User
	isAuthenticated bool
	isAdmin         bool

	tokens auth.TokenStore
}

// NewStore creates an empty session backed by the given credential store
func NewStore(tokens auth.TokenStore) *Store {
	return &Store{tokens: tokens}
}

// Tokens returns the credential store the session clears on logout
func (s *Store) Tokens() auth.TokenStore {
	return s.tokens
}

// SetUser replaces the current user and recomputes the derived flags
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user != nil {
		u := *user
		user = &u
	}
	s.user = user
	s.isAuthenticated = user != nil
	s.isAdmin = user.IsAdmin()
}

// Logout deletes the stored credential and clears the user.
// The session is cleared even when deleting the credential fails; that error is returned.
func (s *Store) Logout() error {
	var err error
	if s.tokens != nil {
		err = s.tokens.DeleteToken()
	}
	s.SetUser(nil)
	return err
}

// User returns a copy of the current user, or nil
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether a user is loaded
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAuthenticated
}

// IsAdmin reports whether the loaded user is an admin
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isAdmin
}

// Snapshot returns all session fields read under one lock
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		IsAuthenticated: s.isAuthenticated,
		IsAdmin:         s.isAdmin,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}
