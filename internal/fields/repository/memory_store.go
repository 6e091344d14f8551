// Package repository provides the storage backends behind the interception
// layer: SQL (PostgreSQL and MySQL), MongoDB and an in-memory store.
package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

// Timestamp columns maintained by every backend.
const (
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// MemoryStore keeps records in process memory. It is used for local
// development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	registry *fieldsDomain.Registry
	tables   map[string][]fieldsDomain.Record
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore for the entities in registry.
func NewMemoryStore(registry *fieldsDomain.Registry) *MemoryStore {
	return &MemoryStore{
		registry: registry,
		tables:   make(map[string][]fieldsDomain.Record),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) table(entity string) (string, error) {
	e, err := m.registry.Entity(entity)
	if err != nil {
		return "", err
	}
	return e.Table, nil
}

// newRecord stamps id and timestamps onto a copy of rec.
func newRecord(rec fieldsDomain.Record, now time.Time) (fieldsDomain.Record, error) {
	out := rec.Clone()
	if out == nil {
		out = fieldsDomain.Record{}
	}
	if _, ok := out[fieldsDomain.IDColumn]; !ok {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate record id: %w", err)
		}
		out[fieldsDomain.IDColumn] = id.String()
	}
	if _, ok := out[CreatedAtColumn]; !ok {
		out[CreatedAtColumn] = now
	}
	out[UpdatedAtColumn] = now
	return out, nil
}

func matches(rec fieldsDomain.Record, filter fieldsDomain.Filter) bool {
	for k, want := range filter {
		got := rec[k]
		if want == nil {
			if got != nil {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) Create(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error) {
	out, err := m.BulkCreate(ctx, entity, []fieldsDomain.Record{rec})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *MemoryStore) BulkCreate(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	now := m.now()
	created := make([]fieldsDomain.Record, len(recs))
	for i, rec := range recs {
		if created[i], err = newRecord(rec, now); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range created {
		if m.indexOf(table, fieldsDomain.Filter{fieldsDomain.IDColumn: rec[fieldsDomain.IDColumn]}) >= 0 {
			return nil, fmt.Errorf("%w: id %v", ErrDuplicateRecord, rec[fieldsDomain.IDColumn])
		}
	}
	out := make([]fieldsDomain.Record, len(created))
	for i, rec := range created {
		m.tables[table] = append(m.tables[table], rec)
		out[i] = rec.Clone()
	}
	return out, nil
}

func (m *MemoryStore) indexOf(table string, filter fieldsDomain.Filter) int {
	for i, rec := range m.tables[table] {
		if matches(rec, filter) {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) apply(rec, patch fieldsDomain.Record) {
	for k, v := range patch {
		if k == fieldsDomain.IDColumn {
			continue
		}
		rec[k] = v
	}
	rec[UpdatedAtColumn] = m.now()
}

func (m *MemoryStore) Update(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return nil, ErrUnboundedFilter
	}
	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(table, filter)
	if i < 0 {
		return nil, fieldsDomain.ErrRecordNotFound
	}
	rec := m.tables[table][i]
	m.apply(rec, patch)
	return rec.Clone(), nil
}

func (m *MemoryStore) Upsert(
	ctx context.Context,
	entity string,
	where fieldsDomain.Filter,
	create, update fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(where) == 0 {
		return nil, ErrUnboundedFilter
	}
	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(table, where); i >= 0 {
		rec := m.tables[table][i]
		m.apply(rec, update)
		return rec.Clone(), nil
	}

	rec, err := newRecord(mergeWhere(create, where), m.now())
	if err != nil {
		return nil, err
	}
	m.tables[table] = append(m.tables[table], rec)
	return rec.Clone(), nil
}

// mergeWhere copies the equality conditions of where into create, leaving
// values already present in create untouched.
func mergeWhere(create fieldsDomain.Record, where fieldsDomain.Filter) fieldsDomain.Record {
	out := create.Clone()
	if out == nil {
		out = fieldsDomain.Record{}
	}
	for k, v := range where {
		if _, ok := out[k]; !ok && v != nil {
			out[k] = v
		}
	}
	return out
}

func (m *MemoryStore) BulkUpdate(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	table, err := m.table(entity)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rec := range m.tables[table] {
		if matches(rec, filter) {
			m.apply(rec, patch)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) FindOne(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
) (fieldsDomain.Record, error) {
	recs, err := m.FindMany(ctx, entity, filter, fieldsDomain.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fieldsDomain.ErrRecordNotFound
	}
	return recs[0], nil
}

func (m *MemoryStore) FindMany(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	opts fieldsDomain.FindOptions,
) ([]fieldsDomain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, err := m.table(entity)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]fieldsDomain.Record, 0)
	for _, rec := range m.tables[table] {
		if matches(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	m.mu.RUnlock()

	if opts.OrderBy != "" {
		column, desc := orderColumn(opts.OrderBy)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][column]), fmt.Sprint(out[j][column])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	return page(out, opts), nil
}

func orderColumn(orderBy string) (string, bool) {
	if len(orderBy) > 0 && orderBy[0] == '-' {
		return orderBy[1:], true
	}
	return orderBy, false
}

func page(recs []fieldsDomain.Record, opts fieldsDomain.FindOptions) []fieldsDomain.Record {
	if opts.Offset > 0 {
		if opts.Offset >= len(recs) {
			return recs[:0]
		}
		recs = recs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(recs) {
		recs = recs[:opts.Limit]
	}
	return recs
}

func (m *MemoryStore) Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	table, err := m.table(entity)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tables[table][:0]
	var n int64
	for _, rec := range m.tables[table] {
		if matches(rec, filter) {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.tables[table] = kept
	return n, nil
}
