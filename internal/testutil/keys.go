package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

// TestSecretPrefix is the secret prefix used by NewSecretStore.
const TestSecretPrefix = "fieldcrypt/"

// TestKey returns a deterministic 32-byte key; different seeds give different keys.
func TestKey(seed byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed + byte(i)
	}
	return key
}

// SecretPayload encodes key as the JSON payload stored in the secret store.
func SecretPayload(t *testing.T, key []byte, keyID string, version int) string {
	t.Helper()

	payload, err := keysDomain.EncodeSecretPayload(key, keyID, version)
	require.NoError(t, err, "failed to encode secret payload")
	return payload
}

// NewSecretStore returns an in-memory secret store holding a distinct key for
// every known key-name, addressed with TestSecretPrefix. The keys are
// returned so tests can decrypt stored columns independently.
func NewSecretStore(t *testing.T) (*keysService.MemoryStore, map[keysDomain.KeyName][]byte) {
	t.Helper()

	cfg := keysDomain.StoreConfig{SecretPrefix: TestSecretPrefix}
	store := keysService.NewMemoryStore(nil)
	keys := make(map[keysDomain.KeyName][]byte)

	for i, name := range keysDomain.KnownKeyNames() {
		key := TestKey(byte(i + 1))
		keys[name] = key
		store.Put(cfg.SecretID(name), SecretPayload(t, key, "kid-"+string(name), i+1))
	}

	return store, keys
}
