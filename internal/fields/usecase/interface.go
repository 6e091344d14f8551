// Package usecase implements the interception layer: a Store decorator that
// encrypts sensitive fields on the way into storage and decrypts them on the
// way out, driven by the field registry.
package usecase

import (
	"context"

	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

// Store is the persistence contract shared by storage backends and the
// interceptor wrapping them. Records use column names; entity names are
// resolved to tables through the field registry.
type Store interface {
	// Create inserts rec and returns the stored record.
	Create(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error)

	// Update applies patch to the single record matching filter and returns it.
	// Returns fieldsDomain.ErrRecordNotFound when nothing matches.
	Update(
		ctx context.Context,
		entity string,
		filter fieldsDomain.Filter,
		patch fieldsDomain.Record,
	) (fieldsDomain.Record, error)

	// Upsert applies update to the record matching where, or inserts create
	// merged with where when none exists.
	Upsert(
		ctx context.Context,
		entity string,
		where fieldsDomain.Filter,
		create, update fieldsDomain.Record,
	) (fieldsDomain.Record, error)

	// BulkCreate inserts every record and returns them in input order.
	BulkCreate(ctx context.Context, entity string, recs []fieldsDomain.Record) ([]fieldsDomain.Record, error)

	// BulkUpdate applies patch to every record matching filter and returns
	// the number of records changed.
	BulkUpdate(ctx context.Context, entity string, filter fieldsDomain.Filter, patch fieldsDomain.Record) (int64, error)

	// FindOne returns the first record matching filter or fieldsDomain.ErrRecordNotFound.
	FindOne(ctx context.Context, entity string, filter fieldsDomain.Filter) (fieldsDomain.Record, error)

	// FindMany returns every record matching filter.
	FindMany(
		ctx context.Context,
		entity string,
		filter fieldsDomain.Filter,
		opts fieldsDomain.FindOptions,
	) ([]fieldsDomain.Record, error)

	// Delete removes every record matching filter and returns how many were removed.
	Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error)
}

// FieldTransformer maps records between their plaintext and stored shapes.
type FieldTransformer interface {
	// EncryptRecord replaces each non-nil sensitive field with its ciphertext
	// envelope and digest columns. Any failure aborts the whole record.
	EncryptRecord(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error)

	// DecryptRecord restores plaintext under logical names and drops the
	// storage columns. A field that fails to decrypt comes back nil.
	DecryptRecord(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error)

	// DecryptRecords applies DecryptRecord to each record, keeping order.
	DecryptRecords(ctx context.Context, entity string, recs []fieldsDomain.Record) ([]fieldsDomain.Record, error)

	// RewriteFilter turns equality conditions on sensitive logical names into
	// conditions on their digest columns. Digest columns compared directly must
	// hold well-formed hex digests.
	RewriteFilter(entity string, filter fieldsDomain.Filter) (fieldsDomain.Filter, error)
}
