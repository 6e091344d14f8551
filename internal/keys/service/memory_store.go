package service

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
)

// MemoryStore is an in-process SecretStore for local development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore creates a MemoryStore seeded with secrets.
func NewMemoryStore(secrets map[string]string) *MemoryStore {
	s := &MemoryStore{secrets: make(map[string]string, len(secrets))}
	for k, v := range secrets {
		s.secrets[k] = v
	}
	return s
}

// Put stores or replaces a secret payload.
func (s *MemoryStore) Put(secretID, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[secretID] = payload
}

// GetSecret returns the payload stored under secretID.
func (s *MemoryStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.secrets[secretID]
	if !ok {
		return "", apperrors.Wrap(apperrors.ErrNotFound, fmt.Sprintf("secret %s", secretID))
	}
	return v, nil
}
