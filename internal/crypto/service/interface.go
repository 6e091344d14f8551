// Package service implements the field cipher and digest engines.
//
// The cipher engine seals single string values with an AEAD (AES-256-GCM or
// ChaCha20-Poly1305) into a text envelope. The digest engine produces
// SHA-256 digests used for equality lookups on encrypted columns. Both are
// synchronous, stateless and safe for concurrent use.
package service

import (
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt seals plaintext and returns the ciphertext (tag appended) and the fresh nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt opens ciphertext (tag appended) sealed under nonce and aad.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD instances for an algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// CipherEngine encrypts and decrypts individual field values.
type CipherEngine interface {
	// Encrypt seals a non-empty plaintext under a 32-byte key.
	Encrypt(plaintext string, key []byte) (*cryptoDomain.Envelope, error)

	// Decrypt opens an envelope. Wrong keys and tampered envelopes fail with
	// cryptoDomain.ErrDecryption.
	Decrypt(env *cryptoDomain.Envelope, key []byte) (string, error)

	// EncryptBatch seals each plaintext in order. Fails before doing any work
	// when the batch exceeds cryptoDomain.MaxEncryptBatch.
	EncryptBatch(plaintexts []string, key []byte) ([]*cryptoDomain.Envelope, error)

	// DecryptBatch opens each envelope in order. Fails before doing any work
	// when the batch exceeds cryptoDomain.MaxDecryptBatch.
	DecryptBatch(envs []*cryptoDomain.Envelope, key []byte) ([]string, error)
}

// DigestEngine produces one-way digests.
type DigestEngine interface {
	Hash(data string, salt []byte) (*Digest, error)
	DeterministicHash(data string) (string, error)
	VerifyHash(data, expected string, salt []byte) bool
	VerifyDeterministicHash(data, expected string) bool
	HashBatch(data []string, salt []byte) ([]*Digest, error)
	DeterministicHashBatch(data []string) ([]string, error)
}
