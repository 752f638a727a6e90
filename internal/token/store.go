package token

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keystoreService = "notefeed-desktop"
	keystoreUser    = "auth-token"
)

// Store keeps the auth token in the system keychain so a restart does not
// log the user out. All methods are safe for concurrent use (go-keyring
// serializes access internally).
type Store struct{}

// NewStore creates a keychain-backed token store
func NewStore() *Store {
	return &Store{}
}

// Save stores the auth token in the keychain
func (s *Store) Save(token string) error {
	if err := keyring.Set(keystoreService, keystoreUser, token); err != nil {
		return fmt.Errorf("failed to store token in keychain: %w", err)
	}
	return nil
}

// Token returns the stored auth token, or "" when none is stored.
// Keychain errors other than "not found" are surfaced as "" as well: a
// missing token just means the user has to log in again.
func (s *Store) Token() string {
	token, err := keyring.Get(keystoreService, keystoreUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			fmt.Printf("Keystore warning: %v\n", err)
		}
		return ""
	}
	return token
}

// IsLoggedIn reports whether a token is currently stored
func (s *Store) IsLoggedIn() bool {
	return s.Token() != ""
}

// Clear removes the stored token (logout)
func (s *Store) Clear() error {
	err := keyring.Delete(keystoreService, keystoreUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
