package session

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNoToken is returned by a TokenStore holding no token
var ErrNoToken = goerrors.New("no access token stored", goerrors.CategoryNotFound).
	WithTextCode("NO_TOKEN").
	WithCode(goerrors.CodeNotFound)

// TokenStore is the client persistence slot for the access token
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
