package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// CipherEngineService implements CipherEngine on top of an AEADManager.
//
// New envelopes are sealed with the configured algorithm. Decryption honors the
// algorithm recorded in the envelope so both algorithms can coexist in storage.
type CipherEngineService struct {
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewCipherEngine creates a CipherEngineService sealing new values with alg.
func NewCipherEngine(aeadManager AEADManager, alg cryptoDomain.Algorithm) *CipherEngineService {
	if alg == "" {
		alg = cryptoDomain.AESGCM
	}
	return &CipherEngineService{
		aeadManager: aeadManager,
		algorithm:   alg,
	}
}

// GenerateKey returns 32 bytes from crypto/rand.
func GenerateKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// ValidateKey returns ErrInvalidKeySize unless candidate is exactly 32 bytes.
func ValidateKey(candidate []byte) error {
	if len(candidate) != cryptoDomain.KeySize {
		return fmt.Errorf("%w: got %d bytes, want %d", cryptoDomain.ErrInvalidKeySize, len(candidate), cryptoDomain.KeySize)
	}
	return nil
}

// Encrypt seals plaintext under key. The AEAD tag is split off the sealed
// output and stored in its own envelope field.
func (c *CipherEngineService) Encrypt(plaintext string, key []byte) (*cryptoDomain.Envelope, error) {
	if plaintext == "" {
		return nil, cryptoDomain.ErrEmptyPlaintext
	}
	if err := ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	aead, err := c.aeadManager.CreateCipher(key, c.algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	sealed, nonce, err := aead.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cryptoDomain.ErrEncryption, err)
	}

	split := len(sealed) - cryptoDomain.TagSize
	return &cryptoDomain.Envelope{
		Algorithm:  c.algorithm,
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:split]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[split:]),
	}, nil
}

// Decrypt opens env with key. Any structural problem or authentication
// failure is reported as ErrDecryption.
func (c *CipherEngineService) Decrypt(env *cryptoDomain.Envelope, key []byte) (string, error) {
	if env == nil || env.Ciphertext == "" || env.Nonce == "" || env.AuthTag == "" {
		return "", cryptoDomain.ErrMalformedEnvelope
	}
	if err := ValidateKey(key); err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrDecryption, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64", cryptoDomain.ErrMalformedEnvelope)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonce) != cryptoDomain.NonceSize {
		return "", fmt.Errorf("%w: nonce must be %d bytes", cryptoDomain.ErrMalformedEnvelope, cryptoDomain.NonceSize)
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil || len(tag) != cryptoDomain.TagSize {
		return "", fmt.Errorf("%w: tag must be %d bytes", cryptoDomain.ErrMalformedEnvelope, cryptoDomain.TagSize)
	}

	alg := env.Algorithm
	if alg == "" {
		alg = cryptoDomain.AESGCM
	}
	aead, err := c.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cryptoDomain.ErrDecryption, err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Decrypt(sealed, nonce, nil)
	if err != nil {
		return "", cryptoDomain.ErrAuthentication
	}
	return string(plaintext), nil
}

// EncryptBatch seals every plaintext in order.
func (c *CipherEngineService) EncryptBatch(plaintexts []string, key []byte) ([]*cryptoDomain.Envelope, error) {
	if err := checkBatch(len(plaintexts), cryptoDomain.MaxEncryptBatch, cryptoDomain.ErrEncryptBatchSize); err != nil {
		return nil, err
	}

	out := make([]*cryptoDomain.Envelope, len(plaintexts))
	for i, p := range plaintexts {
		env, err := c.Encrypt(p, key)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = env
	}
	return out, nil
}

// DecryptBatch opens every envelope in order.
func (c *CipherEngineService) DecryptBatch(envs []*cryptoDomain.Envelope, key []byte) ([]string, error) {
	if err := checkBatch(len(envs), cryptoDomain.MaxDecryptBatch, cryptoDomain.ErrDecryptBatchSize); err != nil {
		return nil, err
	}

	out := make([]string, len(envs))
	for i, env := range envs {
		p, err := c.Decrypt(env, key)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
