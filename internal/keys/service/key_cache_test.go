package service

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

func record(name keysDomain.KeyName) *keysDomain.KeyRecord {
	return &keysDomain.KeyRecord{Name: name, Key: []byte{1, 2, 3, 4}}
}

func TestKeyCache_GetSet(t *testing.T) {
	cache := NewKeyCache(time.Minute, 10)

	_, ok := cache.Get(keysDomain.EmailKey)
	assert.False(t, ok)

	cache.Set(record(keysDomain.EmailKey))
	got, ok := cache.Get(keysDomain.EmailKey)
	require.True(t, ok)
	assert.Equal(t, keysDomain.EmailKey, got.Name)
}

func TestKeyCache_Expiry(t *testing.T) {
	cache := NewKeyCache(time.Minute, 10)
	now := time.Now()
	cache.now = func() time.Time { return now }

	rec := record(keysDomain.PhoneKey)
	cache.Set(rec)
	stored := cache.entries[keysDomain.PhoneKey].Record

	cache.now = func() time.Time { return now.Add(30 * time.Second) }
	_, ok := cache.Get(keysDomain.PhoneKey)
	assert.True(t, ok)

	cache.now = func() time.Time { return now.Add(time.Minute) }
	_, ok = cache.Get(keysDomain.PhoneKey)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Size)
	assert.Equal(t, []byte{0, 0, 0, 0}, stored.Key)
	assert.Equal(t, []byte{1, 2, 3, 4}, rec.Key)
}

func TestKeyCache_InsertionOrderEviction(t *testing.T) {
	cache := NewKeyCache(time.Hour, 2)

	cache.Set(record(keysDomain.NamesKey))
	first := cache.entries[keysDomain.NamesKey].Record
	cache.Set(record(keysDomain.EmailKey))

	// Reading does not refresh insertion order.
	_, ok := cache.Get(keysDomain.NamesKey)
	require.True(t, ok)

	cache.Set(record(keysDomain.PhoneKey))

	stats := cache.Stats()
	assert.Equal(t, 2, stats.Size)
	assert.Equal(t, []keysDomain.KeyName{keysDomain.EmailKey, keysDomain.PhoneKey}, stats.KeyNames)
	assert.Equal(t, []byte{0, 0, 0, 0}, first.Key)
}

func TestKeyCache_ReinsertMovesToBack(t *testing.T) {
	cache := NewKeyCache(time.Hour, 2)

	cache.Set(record(keysDomain.NamesKey))
	cache.Set(record(keysDomain.EmailKey))
	cache.Set(record(keysDomain.NamesKey))
	cache.Set(record(keysDomain.PhoneKey))

	assert.Equal(t, []keysDomain.KeyName{keysDomain.NamesKey, keysDomain.PhoneKey}, cache.Stats().KeyNames)
}

func TestKeyCache_Clear(t *testing.T) {
	cache := NewKeyCache(time.Hour, 5)
	cache.Set(record(keysDomain.AcademicKey))
	stored := cache.entries[keysDomain.AcademicKey].Record
	cache.Set(record(keysDomain.ProfessionalKey))

	cache.Clear()

	stats := cache.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Empty(t, stats.KeyNames)
	assert.Equal(t, []byte{0, 0, 0, 0}, stored.Key)
}

func TestKeyCache_CopiesKeyMaterial(t *testing.T) {
	cache := NewKeyCache(time.Hour, 5)

	rec := record(keysDomain.EmailKey)
	cache.Set(rec)
	rec.Key[0] = 9

	got, ok := cache.Get(keysDomain.EmailKey)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Key)

	got.Key[1] = 9
	cache.Clear()
	assert.Equal(t, []byte{1, 9, 3, 4}, got.Key)
}

func TestKeyCache_ConcurrentGetAndClear(t *testing.T) {
	cache := NewKeyCache(time.Hour, 5)
	key := []byte{1, 2, 3, 4}

	stop := make(chan struct{})
	var clearer sync.WaitGroup
	clearer.Add(1)
	go func() {
		defer clearer.Done()
		for {
			select {
			case <-stop:
				return
			default:
				cache.Set(&keysDomain.KeyRecord{Name: keysDomain.NamesKey, Key: append([]byte(nil), key...)})
				cache.Clear()
			}
		}
	}()

	var readers sync.WaitGroup
	var zeroed atomic.Int64
	for range 8 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for range 2000 {
				if got, ok := cache.Get(keysDomain.NamesKey); ok && !bytes.Equal(got.Key, key) {
					zeroed.Add(1)
				}
			}
		}()
	}

	readers.Wait()
	close(stop)
	clearer.Wait()
	assert.Zero(t, zeroed.Load())
}

func TestNewKeyCache_MinimumSize(t *testing.T) {
	cache := NewKeyCache(time.Hour, 0)
	cache.Set(record(keysDomain.NamesKey))
	cache.Set(record(keysDomain.EmailKey))
	assert.Equal(t, 1, cache.Stats().Size)
}
