// Package usecase implements the key directory: resolution of key-names to
// 32-byte field keys through a remote secret store, with an in-memory cache.
package usecase

import (
	"context"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// KeyDirectory resolves key-names to key records.
//
// Every lookup may suspend on network I/O, so callers always go through
// GetKey (or a named accessor) and never hold on to key material.
type KeyDirectory interface {
	// GetKey returns the record for name, fetching it on a cache miss.
	// All failures are ErrKeyRetrieval.
	GetKey(ctx context.Context, name keysDomain.KeyName) (*keysDomain.KeyRecord, error)

	GetNamesKey(ctx context.Context) (*keysDomain.KeyRecord, error)
	GetPhoneKey(ctx context.Context) (*keysDomain.KeyRecord, error)
	GetEmailKey(ctx context.Context) (*keysDomain.KeyRecord, error)
	GetAcademicKey(ctx context.Context) (*keysDomain.KeyRecord, error)
	GetProfessionalKey(ctx context.Context) (*keysDomain.KeyRecord, error)

	// ClearCache drops every cached key.
	ClearCache()

	// CacheStats reports cache size and cached names, never key material.
	CacheStats() keysDomain.CacheStats

	// PreloadKeys fetches every known key-name concurrently. Individual
	// failures are logged and reported, never returned as an error.
	PreloadKeys(ctx context.Context) keysDomain.PreloadReport
}
