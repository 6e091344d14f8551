package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Cryptographic error kinds.
//
// ErrEncryption, ErrDecryption and ErrHashing are the categories callers test
// with errors.Is; the narrower errors below wrap one of them so a caller can
// match either level.
var (
	// ErrEncryption indicates invalid plaintext or key at the cipher boundary.
	// It is always returned before any output is produced.
	ErrEncryption = errors.Wrap(errors.ErrInvalidInput, "encryption failed")

	// ErrDecryption indicates an invalid envelope, an invalid key or an
	// authentication failure. The specific cause is kept out of the message.
	ErrDecryption = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrHashing indicates invalid input to the digest engine.
	ErrHashing = errors.Wrap(errors.ErrInvalidInput, "hashing failed")

	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is unknown.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key that is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	ErrEmptyPlaintext   = errors.Wrap(ErrEncryption, "plaintext must not be empty")
	ErrEncryptBatchSize = errors.Wrap(ErrEncryption, "batch exceeds encryption ceiling")

	ErrMalformedEnvelope = errors.Wrap(ErrDecryption, "malformed envelope")
	ErrAuthentication    = errors.Wrap(ErrDecryption, "message authentication failed")
	ErrDecryptBatchSize  = errors.Wrap(ErrDecryption, "batch exceeds decryption ceiling")

	ErrEmptyData     = errors.Wrap(ErrHashing, "data must not be empty")
	ErrInvalidSalt   = errors.Wrap(ErrHashing, "salt must not be empty when provided")
	ErrHashBatchSize = errors.Wrap(ErrHashing, "batch exceeds hashing ceiling")
)
