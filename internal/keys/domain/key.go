// Package domain defines the key records, key-names and error kinds of the
// key directory.
package domain

import (
	"time"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// KeyName is the logical label routing a sensitive field to a secret.
type KeyName string

// Recognized key-names. Adding a field registry entry with a new key-name
// also requires adding it here so preload covers it.
const (
	NamesKey        KeyName = "names"
	PhoneKey        KeyName = "phone"
	EmailKey        KeyName = "email"
	AcademicKey     KeyName = "academic"
	ProfessionalKey KeyName = "professional"
)

// KnownKeyNames lists every key-name in a stable order.
func KnownKeyNames() []KeyName {
	return []KeyName{NamesKey, PhoneKey, EmailKey, AcademicKey, ProfessionalKey}
}

// KeyRecord is a resolved 32-byte field key. It lives only in the key
// directory's memory and must never be persisted or logged.
type KeyRecord struct {
	Name    KeyName
	Key     []byte
	KeyID   string
	Version int
}

// Clone returns a deep copy so callers never share the cached key bytes.
func (k *KeyRecord) Clone() *KeyRecord {
	if k == nil {
		return nil
	}
	c := *k
	c.Key = append([]byte(nil), k.Key...)
	return &c
}

// Zero clears the key material.
func (k *KeyRecord) Zero() {
	if k == nil {
		return
	}
	cryptoDomain.Zero(k.Key)
}

// CacheEntry pairs a KeyRecord with the time it was cached.
type CacheEntry struct {
	Record   *KeyRecord
	CachedAt time.Time
	TTL      time.Duration
}

// Expired reports whether the entry is past its TTL at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.CachedAt.Add(e.TTL))
}

// CacheStats describes the cache without exposing key material.
type CacheStats struct {
	Size     int       `json:"size"`
	KeyNames []KeyName `json:"key_names"`
}

// PreloadReport lists which key-names were loaded and which failed.
type PreloadReport struct {
	Loaded []KeyName `json:"loaded"`
	Failed []KeyName `json:"failed"`
}
