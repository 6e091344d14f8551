package domain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// SecretPayload is the JSON document stored in the secret store for a key-name.
type SecretPayload struct {
	Key     string `json:"key"`
	KeyID   string `json:"keyId,omitempty"`
	Version int    `json:"version,omitempty"`
}

var errMissingKey = errors.New("payload has no key field")

// ParseSecretPayload runs the validation pipeline over a raw secret value and
// returns the decoded record. Failures carry the stage that rejected them.
func ParseSecretPayload(name KeyName, raw string, validate func([]byte) error) (*KeyRecord, error) {
	var payload SecretPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, NewKeyRetrievalError(name, StageParse, err)
	}
	if payload.Key == "" {
		return nil, NewKeyRetrievalError(name, StageMissing, errMissingKey)
	}

	key, err := DecodeKeyMaterial(payload.Key)
	if err != nil {
		return nil, NewKeyRetrievalError(name, StageDecode, err)
	}
	if err := validate(key); err != nil {
		cryptoDomain.Zero(key)
		return nil, NewKeyRetrievalError(name, StageValidate, err)
	}

	return &KeyRecord{
		Name:    name,
		Key:     key,
		KeyID:   payload.KeyID,
		Version: payload.Version,
	}, nil
}

// DecodeKeyMaterial decodes a 64-character hex key, falling back to standard
// base64. The result must be exactly 32 bytes.
func DecodeKeyMaterial(encoded string) ([]byte, error) {
	if len(encoded) == hex.EncodedLen(cryptoDomain.KeySize) {
		if key, err := hex.DecodeString(encoded); err == nil {
			return key, nil
		}
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("key is neither 64-char hex nor base64")
	}
	if len(key) != cryptoDomain.KeySize {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("decoded key is %d bytes, want %d", len(key), cryptoDomain.KeySize)
	}
	return key, nil
}

// EncodeSecretPayload renders a payload for provisioning a new key.
func EncodeSecretPayload(key []byte, keyID string, version int) (string, error) {
	b, err := json.Marshal(SecretPayload{
		Key:     hex.EncodeToString(key),
		KeyID:   keyID,
		Version: version,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
