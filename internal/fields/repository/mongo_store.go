package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

// mongoIDField is the document key holding the record id.
const mongoIDField = "_id"

// MongoStore persists records as MongoDB documents, one collection per
// registry table.
type MongoStore struct {
	db       *mongo.Database
	registry *fieldsDomain.Registry
	now      func() time.Time
}

// NewMongoStore creates a MongoStore backed by db.
func NewMongoStore(db *mongo.Database, registry *fieldsDomain.Registry) *MongoStore {
	return &MongoStore{
		db:       db,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ConnectMongo opens a client for uri and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "mongo uri is empty")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates an index on every digest column so equality lookups
// on sensitive fields are indexed.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, name := range m.registry.Entities() {
		e, err := m.registry.Entity(name)
		if err != nil {
			return err
		}
		models := make([]mongo.IndexModel, 0, len(e.Fields))
		for _, f := range e.Fields {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: f.DigestColumn, Value: 1}},
				Options: options.Index().SetSparse(true),
			})
		}
		if len(models) == 0 {
			continue
		}
		if _, err := m.db.Collection(e.Table).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", e.Table, err)
		}
	}
	return nil
}

func (m *MongoStore) collection(entity string) (*mongo.Collection, error) {
	e, err := m.registry.Entity(entity)
	if err != nil {
		return nil, err
	}
	return m.db.Collection(e.Table), nil
}

// toDocument maps a record onto a document, moving id to _id.
func toDocument(rec fieldsDomain.Record) bson.M {
	doc := make(bson.M, len(rec))
	for k, v := range rec {
		if k == fieldsDomain.IDColumn {
			doc[mongoIDField] = v
			continue
		}
		doc[k] = v
	}
	return doc
}

// fromDocument maps a document back onto a record.
func fromDocument(doc bson.M) fieldsDomain.Record {
	rec := make(fieldsDomain.Record, len(doc))
	for k, v := range doc {
		if k == mongoIDField {
			k = fieldsDomain.IDColumn
		}
		if dt, ok := v.(bson.DateTime); ok {
			v = dt.Time().UTC()
		}
		rec[k] = v
	}
	return rec
}

// toMongoFilter maps an equality filter onto a query document.
func toMongoFilter(filter fieldsDomain.Filter) bson.M {
	return toDocument(fieldsDomain.Record(filter))
}

// setDocument builds the $set payload for patch, never touching _id.
func (m *MongoStore) setDocument(patch fieldsDomain.Record) bson.M {
	set := toDocument(patch)
	delete(set, mongoIDField)
	set[UpdatedAtColumn] = m.now()
	return set
}

func translateMongoError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fieldsDomain.ErrRecordNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Wrap(ErrDuplicateRecord, err.Error())
	}
	return apperrors.Wrap(err, message)
}

func (m *MongoStore) Create(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error) {
	out, err := m.BulkCreate(ctx, entity, []fieldsDomain.Record{rec})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *MongoStore) BulkCreate(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	if len(recs) == 0 {
		return []fieldsDomain.Record{}, nil
	}
	coll, err := m.collection(entity)
	if err != nil {
		return nil, err
	}

	now := m.now()
	out := make([]fieldsDomain.Record, len(recs))
	docs := make([]any, len(recs))
	for i, rec := range recs {
		if out[i], err = newRecord(rec, now); err != nil {
			return nil, err
		}
		docs[i] = toDocument(out[i])
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return nil, translateMongoError(err, "failed to insert documents")
	}
	return out, nil
}

func (m *MongoStore) Update(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if len(filter) == 0 {
		return nil, ErrUnboundedFilter
	}
	coll, err := m.collection(entity)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = coll.FindOneAndUpdate(ctx,
		toMongoFilter(filter),
		bson.M{"$set": m.setDocument(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translateMongoError(err, "failed to update document")
	}
	return fromDocument(doc), nil
}

func (m *MongoStore) Upsert(
	ctx context.Context,
	entity string,
	where fieldsDomain.Filter,
	create, update fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if len(where) == 0 {
		return nil, ErrUnboundedFilter
	}
	coll, err := m.collection(entity)
	if err != nil {
		return nil, err
	}

	set := m.setDocument(update)
	insert, err := newRecord(create, m.now())
	if err != nil {
		return nil, err
	}
	onInsert := toDocument(insert)
	// A key may appear in only one update operator.
	for k := range set {
		delete(onInsert, k)
	}
	for k := range where {
		if k != fieldsDomain.IDColumn {
			delete(onInsert, k)
		}
	}
	if _, ok := where[fieldsDomain.IDColumn]; ok {
		delete(onInsert, mongoIDField)
	}

	var doc bson.M
	err = coll.FindOneAndUpdate(ctx,
		toMongoFilter(where),
		bson.M{"$set": set, "$setOnInsert": onInsert},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, translateMongoError(err, "failed to upsert document")
	}
	return fromDocument(doc), nil
}

func (m *MongoStore) BulkUpdate(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	coll, err := m.collection(entity)
	if err != nil {
		return 0, err
	}

	result, err := coll.UpdateMany(ctx, toMongoFilter(filter), bson.M{"$set": m.setDocument(patch)})
	if err != nil {
		return 0, translateMongoError(err, "failed to update documents")
	}
	return result.MatchedCount, nil
}

func (m *MongoStore) FindOne(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
) (fieldsDomain.Record, error) {
	coll, err := m.collection(entity)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	if err := coll.FindOne(ctx, toMongoFilter(filter)).Decode(&doc); err != nil {
		return nil, translateMongoError(err, "failed to find document")
	}
	return fromDocument(doc), nil
}

// findOptions maps paging and ordering onto driver options.
func findOptions(opts fieldsDomain.FindOptions) *options.FindOptionsBuilder {
	fo := options.Find()
	if opts.OrderBy != "" {
		column, desc := orderColumn(opts.OrderBy)
		if column == fieldsDomain.IDColumn {
			column = mongoIDField
		}
		direction := 1
		if desc {
			direction = -1
		}
		fo.SetSort(bson.D{{Key: column, Value: direction}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	return fo
}

func (m *MongoStore) FindMany(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	opts fieldsDomain.FindOptions,
) ([]fieldsDomain.Record, error) {
	coll, err := m.collection(entity)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, toMongoFilter(filter), findOptions(opts))
	if err != nil {
		return nil, translateMongoError(err, "failed to find documents")
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, translateMongoError(err, "failed to read documents")
	}

	out := make([]fieldsDomain.Record, len(docs))
	for i, doc := range docs {
		out[i] = fromDocument(doc)
	}
	return out, nil
}

func (m *MongoStore) Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	coll, err := m.collection(entity)
	if err != nil {
		return 0, err
	}

	result, err := coll.DeleteMany(ctx, toMongoFilter(filter))
	if err != nil {
		return 0, translateMongoError(err, "failed to delete documents")
	}
	return result.DeletedCount, nil
}
