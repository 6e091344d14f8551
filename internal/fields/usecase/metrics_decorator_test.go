package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	fieldsRepository "github.com/allisson/fieldcrypt/internal/fields/repository"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

func expectMetrics(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "fields", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "fields", operation, mock.AnythingOfType("time.Duration"), status).Return().Once()
}

func TestNewStoreWithMetrics(t *testing.T) {
	decorator := NewStoreWithMetrics(fieldsRepository.NewMemoryStore(fieldsDomain.DefaultRegistry()), &mockBusinessMetrics{})

	assert.NotNil(t, decorator)
	assert.Implements(t, (*Store)(nil), decorator)
}

func TestStoreWithMetrics(t *testing.T) {
	ctx := context.Background()
	backend := fieldsRepository.NewMemoryStore(fieldsDomain.DefaultRegistry())

	t.Run("Success_RecordsEachOperation", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		expectMetrics(m, ctx, "record_create", "success")
		expectMetrics(m, ctx, "record_bulk_create", "success")
		expectMetrics(m, ctx, "record_update", "success")
		expectMetrics(m, ctx, "record_upsert", "success")
		expectMetrics(m, ctx, "record_bulk_update", "success")
		expectMetrics(m, ctx, "record_find_one", "success")
		expectMetrics(m, ctx, "record_find_many", "success")
		expectMetrics(m, ctx, "record_delete", "success")
		store := NewStoreWithMetrics(backend, m)

		rec, err := store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{"role": "a"})
		require.NoError(t, err)
		id := rec[fieldsDomain.IDColumn]
		_, err = store.BulkCreate(ctx, fieldsDomain.UserEntity, []fieldsDomain.Record{{"role": "b"}})
		require.NoError(t, err)
		_, err = store.Update(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": id}, fieldsDomain.Record{"role": "c"})
		require.NoError(t, err)
		_, err = store.Upsert(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": id}, nil, fieldsDomain.Record{"role": "d"})
		require.NoError(t, err)
		_, err = store.BulkUpdate(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"role": "b"}, fieldsDomain.Record{"role": "e"})
		require.NoError(t, err)
		_, err = store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": id})
		require.NoError(t, err)
		_, err = store.FindMany(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.FindOptions{})
		require.NoError(t, err)
		_, err = store.Delete(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": id})
		require.NoError(t, err)

		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorStatus", func(t *testing.T) {
		m := &mockBusinessMetrics{}
		expectMetrics(m, ctx, "record_find_one", "error")
		store := NewStoreWithMetrics(backend, m)

		_, err := store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": "missing"})
		assert.True(t, errors.Is(err, fieldsDomain.ErrRecordNotFound))
		m.AssertExpectations(t)
	})
}
