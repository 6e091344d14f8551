package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// Register KMS drivers usable for wrapped payloads.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// Keeper is the subset of *secrets.Keeper used to unwrap payloads.
type Keeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeeperStore decorates a SecretStore whose payloads are themselves encrypted
// by a KMS key. Stored values are base64 of the KMS ciphertext.
type KeeperStore struct {
	next   SecretStore
	keeper Keeper
}

// NewKeeperStore wraps next, unwrapping every payload with keeper.
func NewKeeperStore(next SecretStore, keeper Keeper) *KeeperStore {
	return &KeeperStore{next: next, keeper: keeper}
}

// OpenKeeper opens a gocloud.dev secrets keeper. Supports base64key://,
// awskms://, gcpkms://, azurekeyvault:// and hashivault:// URIs.
func OpenKeeper(ctx context.Context, keyURI string) (*secrets.Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// GetSecret fetches the wrapped payload and decrypts it with the keeper.
func (s *KeeperStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	wrapped, err := s.next.GetSecret(ctx, secretID)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return "", fmt.Errorf("wrapped secret %s is not base64: %w", secretID, err)
	}

	plaintext, err := s.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to unwrap secret %s: %w", secretID, err)
	}
	return string(plaintext), nil
}

// Close releases the keeper.
func (s *KeeperStore) Close() error {
	return s.keeper.Close()
}
