package usecase

import (
	"context"

	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

// RecordTransformer is the FieldTransformer with batch encryption, as used by
// the interceptor.
type RecordTransformer interface {
	FieldTransformer
	EncryptRecords(ctx context.Context, entity string, recs []fieldsDomain.Record) ([]fieldsDomain.Record, error)
}

// Interceptor is a Store that applies field encryption around another Store.
// Callers read and write plaintext under logical names; the wrapped store
// only ever sees ciphertext envelopes and digests.
type Interceptor struct {
	next        Store
	transformer RecordTransformer
}

// NewInterceptor wraps next.
func NewInterceptor(next Store, transformer RecordTransformer) *Interceptor {
	return &Interceptor{next: next, transformer: transformer}
}

// Create encrypts the sensitive fields of rec, stores it and returns the
// stored record with plaintext restored.
func (i *Interceptor) Create(
	ctx context.Context,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	enc, err := i.transformer.EncryptRecord(ctx, entity, rec)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.Create(ctx, entity, enc)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecord(ctx, entity, stored)
}

// Update rewrites filter to digest columns, encrypts patch and applies it to
// the single matching record.
func (i *Interceptor) Update(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	where, err := i.transformer.RewriteFilter(entity, filter)
	if err != nil {
		return nil, err
	}
	enc, err := i.transformer.EncryptRecord(ctx, entity, patch)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.Update(ctx, entity, where, enc)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecord(ctx, entity, stored)
}

// Upsert updates the record matching where or inserts create. Sensitive values
// in where are carried into create so an inserted record stores them encrypted,
// not only as the digest the filter was rewritten to.
func (i *Interceptor) Upsert(
	ctx context.Context,
	entity string,
	where fieldsDomain.Filter,
	create, update fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	rewritten, err := i.transformer.RewriteFilter(entity, where)
	if err != nil {
		return nil, err
	}
	encCreate, err := i.transformer.EncryptRecord(ctx, entity, mergeWhere(create, where))
	if err != nil {
		return nil, err
	}
	encUpdate, err := i.transformer.EncryptRecord(ctx, entity, update)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.Upsert(ctx, entity, rewritten, encCreate, encUpdate)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecord(ctx, entity, stored)
}

// BulkCreate encrypts and stores every record, keeping input order.
func (i *Interceptor) BulkCreate(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	enc, err := i.transformer.EncryptRecords(ctx, entity, recs)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.BulkCreate(ctx, entity, enc)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecords(ctx, entity, stored)
}

// BulkUpdate encrypts patch and applies it to every record matching filter.
func (i *Interceptor) BulkUpdate(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (int64, error) {
	where, err := i.transformer.RewriteFilter(entity, filter)
	if err != nil {
		return 0, err
	}
	enc, err := i.transformer.EncryptRecord(ctx, entity, patch)
	if err != nil {
		return 0, err
	}
	return i.next.BulkUpdate(ctx, entity, where, enc)
}

// FindOne returns the first record matching filter with plaintext restored.
func (i *Interceptor) FindOne(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
) (fieldsDomain.Record, error) {
	where, err := i.transformer.RewriteFilter(entity, filter)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.FindOne(ctx, entity, where)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecord(ctx, entity, stored)
}

// FindMany returns every record matching filter with plaintext restored.
func (i *Interceptor) FindMany(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	opts fieldsDomain.FindOptions,
) ([]fieldsDomain.Record, error) {
	where, err := i.transformer.RewriteFilter(entity, filter)
	if err != nil {
		return nil, err
	}
	stored, err := i.next.FindMany(ctx, entity, where, opts)
	if err != nil {
		return nil, err
	}
	return i.transformer.DecryptRecords(ctx, entity, stored)
}

// Delete forwards to the wrapped store. Only the filter is rewritten so
// records can be addressed by a sensitive logical name.
func (i *Interceptor) Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error) {
	where, err := i.transformer.RewriteFilter(entity, filter)
	if err != nil {
		return 0, err
	}
	return i.next.Delete(ctx, entity, where)
}

// mergeWhere returns create with every where condition it does not set itself.
func mergeWhere(create fieldsDomain.Record, where fieldsDomain.Filter) fieldsDomain.Record {
	merged := make(fieldsDomain.Record, len(create)+len(where))
	for k, v := range where {
		merged[k] = v
	}
	for k, v := range create {
		merged[k] = v
	}
	return merged
}
