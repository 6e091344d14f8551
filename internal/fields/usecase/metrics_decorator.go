package usecase

import (
	"context"
	"time"

	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

// storeWithMetrics decorates Store with metrics instrumentation.
type storeWithMetrics struct {
	next    Store
	metrics metrics.BusinessMetrics
}

// NewStoreWithMetrics wraps a Store with metrics recording.
func NewStoreWithMetrics(next Store, m metrics.BusinessMetrics) Store {
	return &storeWithMetrics{next: next, metrics: m}
}

func (s *storeWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "fields", operation, status)
	s.metrics.RecordDuration(ctx, "fields", operation, time.Since(start), status)
}

func (s *storeWithMetrics) Create(
	ctx context.Context,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.Create(ctx, entity, rec)
	s.record(ctx, "record_create", start, err)
	return out, err
}

func (s *storeWithMetrics) Update(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.Update(ctx, entity, filter, patch)
	s.record(ctx, "record_update", start, err)
	return out, err
}

func (s *storeWithMetrics) Upsert(
	ctx context.Context,
	entity string,
	where fieldsDomain.Filter,
	create, update fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.Upsert(ctx, entity, where, create, update)
	s.record(ctx, "record_upsert", start, err)
	return out, err
}

func (s *storeWithMetrics) BulkCreate(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.BulkCreate(ctx, entity, recs)
	s.record(ctx, "record_bulk_create", start, err)
	return out, err
}

func (s *storeWithMetrics) BulkUpdate(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (int64, error) {
	start := time.Now()
	n, err := s.next.BulkUpdate(ctx, entity, filter, patch)
	s.record(ctx, "record_bulk_update", start, err)
	return n, err
}

func (s *storeWithMetrics) FindOne(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
) (fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.FindOne(ctx, entity, filter)
	s.record(ctx, "record_find_one", start, err)
	return out, err
}

func (s *storeWithMetrics) FindMany(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	opts fieldsDomain.FindOptions,
) ([]fieldsDomain.Record, error) {
	start := time.Now()
	out, err := s.next.FindMany(ctx, entity, filter, opts)
	s.record(ctx, "record_find_many", start, err)
	return out, err
}

func (s *storeWithMetrics) Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error) {
	start := time.Now()
	n, err := s.next.Delete(ctx, entity, filter)
	s.record(ctx, "record_delete", start, err)
	return n, err
}
