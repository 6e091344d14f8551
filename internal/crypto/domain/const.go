package domain

// Algorithm represents the authenticated cipher used to seal a field value.
//
// Both supported algorithms are AEAD constructions with a 256-bit key, a 96-bit
// nonce and a 128-bit tag, so envelopes produced by either have the same shape.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM. It is the default algorithm.
	AESGCM Algorithm = "aes-256-gcm"

	// ChaCha20 represents ChaCha20-Poly1305, preferred on hosts without AES-NI.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Key and envelope sizes shared by every supported algorithm.
const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
	SaltSize  = 32
)

// Batch ceilings. Decryption sits on read paths and gets the tightest bound;
// hashing is cheap and gets the loosest.
const (
	MaxEncryptBatch = 50
	MaxDecryptBatch = 25
	MaxHashBatch    = 100
)

// DigestAlgorithm names the one-way function behind every digest.
const DigestAlgorithm = "sha256"

// ParseAlgorithm converts a configuration string into an Algorithm.
// An empty string selects AESGCM.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", string(AESGCM), "aes-gcm":
		return AESGCM, nil
	case string(ChaCha20):
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
