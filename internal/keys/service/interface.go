// Package service provides the secret store backends and the bounded key cache
// used by the key directory.
package service

import (
	"context"
)

// SecretStore fetches raw secret payloads by identifier. Implementations
// return an error wrapping apperrors.ErrNotFound when the secret does not exist.
type SecretStore interface {
	GetSecret(ctx context.Context, secretID string) (string, error)
}
