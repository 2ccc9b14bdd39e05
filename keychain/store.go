// Package keychain persists the client access token in the OS credential
// store, or an encrypted file where no native store exists.
package keychain

import (
	"context"
	"errors"
	"sync"

	"github.com/99designs/keyring"

	"github.com/goliatone/go-welfare-auth/session"
)

// ServiceName identifies our credential store namespace.
const ServiceName = "welfare-auth"

// KeyAccessToken is the item key holding the access token
const KeyAccessToken = "auth_access_token"

// Config selects the keyring backend
type Config struct {
	ServiceName string
	// Backends restricts the backends tried, in order. Empty means all available.
	Backends []string
	// FileDir and FilePassword configure the encrypted file backend.
	FileDir      string
	FilePassword string
}

// Store is a session.TokenStore backed by a keyring
type Store struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

var _ session.TokenStore = (*Store)(nil)

// New wraps an opened keyring
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the keyring described by cfg
func Open(cfg Config) (*Store, error) {
	name := cfg.ServiceName
	if name == "" {
		name = ServiceName
	}

	krCfg := keyring.Config{
		ServiceName:   name,
		PassPrefix:    name,
		WinCredPrefix: name,
		FileDir:       cfg.FileDir,
	}

	if cfg.FilePassword != "" {
		krCfg.FilePasswordFunc = keyring.FixedStringPrompt(cfg.FilePassword)
	}

	for _, b := range cfg.Backends {
		krCfg.AllowedBackends = append(krCfg.AllowedBackends, keyring.BackendType(b))
	}

	ring, err := keyring.Open(krCfg)
	if err != nil {
		return nil, err
	}

	return New(ring), nil
}

// Load returns the stored token or session.ErrNoToken
func (s *Store) Load(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := s.ring.Get(KeyAccessToken)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", session.ErrNoToken
		}
		return "", err
	}

	if len(item.Data) == 0 {
		return "", session.ErrNoToken
	}

	return string(item.Data), nil
}

// Save stores the token, replacing any previous one
func (s *Store) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ring.Set(keyring.Item{
		Key:   KeyAccessToken,
		Data:  []byte(token),
		Label: ServiceName + " access token",
	})
}

// Clear removes the token. Clearing an empty slot is not an error.
func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ring.Remove(KeyAccessToken); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
