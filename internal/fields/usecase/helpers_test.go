package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	fieldsRepository "github.com/allisson/fieldcrypt/internal/fields/repository"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	keysUsecase "github.com/allisson/fieldcrypt/internal/keys/usecase"
	"github.com/allisson/fieldcrypt/internal/metrics"
	"github.com/allisson/fieldcrypt/internal/testutil"
)

const secretPrefix = testutil.TestSecretPrefix

type fixture struct {
	keys        map[keysDomain.KeyName][]byte
	secrets     *keysService.MemoryStore
	directory   keysUsecase.KeyDirectory
	transformer *Transformer
	backend     *fieldsRepository.MemoryStore
	store       *Interceptor
	logs        *bytes.Buffer
	metrics     *countingMetrics
}

// countingMetrics counts decrypt failures reported by the transformer.
type countingMetrics struct {
	decryptFailures atomic.Int64
}

func (c *countingMetrics) RecordOperation(_ context.Context, domain, operation, status string) {
	if domain == "fields" && operation == "field_decrypt" && status == "error" {
		c.decryptFailures.Add(1)
	}
}

func (c *countingMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

var _ metrics.BusinessMetrics = (*countingMetrics)(nil)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	secrets, keys := testutil.NewSecretStore(t)
	f := &fixture{
		keys:    keys,
		secrets: secrets,
		logs:    &bytes.Buffer{},
		metrics: &countingMetrics{},
	}

	logger := slog.New(slog.NewJSONHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f.directory = keysUsecase.NewKeyDirectory(f.secrets, keysUsecase.Options{
		StoreConfig: keysDomain.StoreConfig{SecretPrefix: secretPrefix},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	registry := fieldsDomain.DefaultRegistry()
	f.transformer = NewTransformer(
		registry,
		f.directory,
		cryptoService.NewCipherEngine(cryptoService.NewAEADManager(), cryptoDomain.AESGCM),
		cryptoService.NewDigestEngine(),
		f.metrics,
		logger,
	)
	f.backend = fieldsRepository.NewMemoryStore(registry)
	f.store = NewInterceptor(f.backend, f.transformer)
	return f
}

func mustDigest(t *testing.T, value string) string {
	t.Helper()
	d, err := cryptoService.NewDigestEngine().DeterministicHash(value)
	require.NoError(t, err)
	return d
}
