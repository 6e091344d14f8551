package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// Digest is the result of a salted or unsalted hash.
type Digest struct {
	Digest    string
	Algorithm string
}

// DigestEngineService implements DigestEngine with SHA-256.
//
// The deterministic variant is intentionally unkeyed: it backs equality lookups
// and unique indexes, and confidentiality of the value is carried by the paired
// ciphertext column.
type DigestEngineService struct{}

// NewDigestEngine creates a new DigestEngineService.
func NewDigestEngine() *DigestEngineService {
	return &DigestEngineService{}
}

// GenerateSalt returns 32 bytes from crypto/rand.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// IsValidDigestFormat reports whether candidate is exactly 64 hex characters.
func IsValidDigestFormat(candidate string) bool {
	if len(candidate) != sha256.Size*2 {
		return false
	}
	for _, r := range candidate {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// normalize lowercases and trims data for the deterministic digest.
func normalize(data string) string {
	return strings.ToLower(strings.TrimSpace(data))
}

func sum(salt []byte, data string) string {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Hash digests salt||data. A nil salt hashes data alone; a non-nil empty salt
// is rejected so a missing salt is never mistaken for a supplied one.
func (d *DigestEngineService) Hash(data string, salt []byte) (*Digest, error) {
	if data == "" {
		return nil, cryptoDomain.ErrEmptyData
	}
	if salt != nil && len(salt) == 0 {
		return nil, cryptoDomain.ErrInvalidSalt
	}
	return &Digest{
		Digest:    sum(salt, data),
		Algorithm: cryptoDomain.DigestAlgorithm,
	}, nil
}

// DeterministicHash digests the normalized form of data.
func (d *DigestEngineService) DeterministicHash(data string) (string, error) {
	if data == "" {
		return "", cryptoDomain.ErrEmptyData
	}
	return sum(nil, normalize(data)), nil
}

// VerifyHash reports whether data hashes to expected. It never returns an error.
func (d *DigestEngineService) VerifyHash(data, expected string, salt []byte) bool {
	got, err := d.Hash(data, salt)
	if err != nil {
		return false
	}
	return digestEqual(got.Digest, expected)
}

// VerifyDeterministicHash reports whether data deterministically hashes to expected.
func (d *DigestEngineService) VerifyDeterministicHash(data, expected string) bool {
	got, err := d.DeterministicHash(data)
	if err != nil {
		return false
	}
	return digestEqual(got, expected)
}

func digestEqual(got, expected string) bool {
	if !IsValidDigestFormat(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(expected))) == 1
}

// HashBatch hashes every item with the same salt, preserving order.
func (d *DigestEngineService) HashBatch(data []string, salt []byte) ([]*Digest, error) {
	if err := checkBatch(len(data), cryptoDomain.MaxHashBatch, cryptoDomain.ErrHashBatchSize); err != nil {
		return nil, err
	}

	out := make([]*Digest, len(data))
	for i, item := range data {
		digest, err := d.Hash(item, salt)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = digest
	}
	return out, nil
}

// DeterministicHashBatch deterministically hashes every item, preserving order.
func (d *DigestEngineService) DeterministicHashBatch(data []string) ([]string, error) {
	if err := checkBatch(len(data), cryptoDomain.MaxHashBatch, cryptoDomain.ErrHashBatchSize); err != nil {
		return nil, err
	}

	out := make([]string, len(data))
	for i, item := range data {
		digest, err := d.DeterministicHash(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = digest
	}
	return out, nil
}
