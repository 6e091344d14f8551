package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	mysqlDriver "github.com/go-sql-driver/mysql"
	validation "github.com/jellydator/validation"
	"github.com/lib/pq"

	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// SQLStore persists records in PostgreSQL or MySQL. Table names come from the
// field registry and column names are checked against a strict identifier
// pattern before any query is built.
type SQLStore struct {
	db        *sql.DB
	txManager database.TxManager
	registry  *fieldsDomain.Registry
	driver    string
	builder   sq.StatementBuilderType
	now       func() time.Time
}

// NewSQLStore creates a SQLStore for driver ("postgres" or "mysql").
func NewSQLStore(db *sql.DB, driver string, registry *fieldsDomain.Registry) (*SQLStore, error) {
	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverMySQL:
		placeholder = sq.Question
	default:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported sql driver %q", driver))
	}

	return &SQLStore{
		db:        db,
		txManager: database.NewTxManager(db),
		registry:  registry,
		driver:    driver,
		builder:   sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLStore) table(entity string) (string, error) {
	e, err := s.registry.Entity(entity)
	if err != nil {
		return "", err
	}
	return e.Table, nil
}

func checkColumns[V any](m map[string]V) error {
	for column := range m {
		if err := validation.Validate(column, validation.Required, appValidation.Identifier); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidColumn, column, err)
		}
	}
	return nil
}

func where(filter fieldsDomain.Filter) (sq.Eq, error) {
	if err := checkColumns(filter); err != nil {
		return nil, err
	}
	return sq.Eq(filter), nil
}

// translateError maps driver errors to application error kinds.
func translateError(err error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if apperrors.As(err, &pqErr) && pqErr.Code == "23505" {
		return apperrors.Wrap(ErrDuplicateRecord, pqErr.Constraint)
	}
	var myErr *mysqlDriver.MySQLError
	if apperrors.As(err, &myErr) && myErr.Number == 1062 {
		return apperrors.Wrap(ErrDuplicateRecord, myErr.Message)
	}
	return apperrors.Wrap(err, message)
}

// scanRecords reads every row into a Record keyed by column name. Byte slices
// are copied into strings since text columns arrive as []byte on MySQL.
func scanRecords(rows *sql.Rows) ([]fieldsDomain.Record, error) {
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]fieldsDomain.Record, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(fieldsDomain.Record, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				rec[column] = string(b)
				continue
			}
			rec[column] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) query(ctx context.Context, builder sq.Sqlizer) ([]fieldsDomain.Record, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := database.GetTx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *SQLStore) exec(ctx context.Context, builder sq.Sqlizer) (int64, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}
	result, err := database.GetTx(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// selectByIDs reads records back by primary key in the order of ids.
func (s *SQLStore) selectByIDs(ctx context.Context, table string, ids []any) ([]fieldsDomain.Record, error) {
	recs, err := s.query(ctx, s.builder.Select("*").From(table).Where(sq.Eq{fieldsDomain.IDColumn: ids}))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]fieldsDomain.Record, len(recs))
	for _, rec := range recs {
		byID[fmt.Sprint(rec[fieldsDomain.IDColumn])] = rec
	}
	out := make([]fieldsDomain.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := byID[fmt.Sprint(id)]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *SQLStore) Create(ctx context.Context, entity string, rec fieldsDomain.Record) (fieldsDomain.Record, error) {
	out, err := s.BulkCreate(ctx, entity, []fieldsDomain.Record{rec})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fieldsDomain.ErrRecordNotFound
	}
	return out[0], nil
}

func (s *SQLStore) BulkCreate(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	if len(recs) == 0 {
		return []fieldsDomain.Record{}, nil
	}
	table, err := s.table(entity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rows := make([]fieldsDomain.Record, len(recs))
	columnSet := make(map[string]struct{})
	for i, rec := range recs {
		if rows[i], err = newRecord(rec, now); err != nil {
			return nil, err
		}
		if err := checkColumns(rows[i]); err != nil {
			return nil, err
		}
		for column := range rows[i] {
			columnSet[column] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for column := range columnSet {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	insert := s.builder.Insert(table).Columns(columns...)
	ids := make([]any, len(rows))
	for i, row := range rows {
		values := make([]any, len(columns))
		for j, column := range columns {
			values[j] = row[column]
		}
		insert = insert.Values(values...)
		ids[i] = row[fieldsDomain.IDColumn]
	}

	var out []fieldsDomain.Record
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.exec(ctx, insert); err != nil {
			return translateError(err, "failed to insert records")
		}
		out, err = s.selectByIDs(ctx, table, ids)
		return apperrors.Wrap(err, "failed to read inserted records")
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockOne selects the id of the first record matching filter, locking the row
// for the rest of the transaction.
func (s *SQLStore) lockOne(ctx context.Context, table string, filter fieldsDomain.Filter) (any, bool, error) {
	cond, err := where(filter)
	if err != nil {
		return nil, false, err
	}
	recs, err := s.query(ctx, s.builder.Select(fieldsDomain.IDColumn).
		From(table).
		Where(cond).
		Limit(1).
		Suffix("FOR UPDATE"))
	if err != nil {
		return nil, false, apperrors.Wrap(err, "failed to select record")
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0][fieldsDomain.IDColumn], true, nil
}

// updateByID applies patch to a single row. The id column is never rewritten.
func (s *SQLStore) updateByID(ctx context.Context, table string, id any, patch fieldsDomain.Record) error {
	set := patch.Clone()
	if set == nil {
		set = fieldsDomain.Record{}
	}
	delete(set, fieldsDomain.IDColumn)
	set[UpdatedAtColumn] = s.now()
	if err := checkColumns(set); err != nil {
		return err
	}
	_, err := s.exec(ctx, s.builder.Update(table).SetMap(set).Where(sq.Eq{fieldsDomain.IDColumn: id}))
	return translateError(err, "failed to update record")
}

func (s *SQLStore) Update(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if len(filter) == 0 {
		return nil, ErrUnboundedFilter
	}
	table, err := s.table(entity)
	if err != nil {
		return nil, err
	}

	var out fieldsDomain.Record
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		id, found, err := s.lockOne(ctx, table, filter)
		if err != nil {
			return err
		}
		if !found {
			return fieldsDomain.ErrRecordNotFound
		}
		if err := s.updateByID(ctx, table, id, patch); err != nil {
			return err
		}
		recs, err := s.selectByIDs(ctx, table, []any{id})
		if err != nil {
			return apperrors.Wrap(err, "failed to read updated record")
		}
		if len(recs) == 0 {
			return fieldsDomain.ErrRecordNotFound
		}
		out = recs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Upsert(
	ctx context.Context,
	entity string,
	whereFilter fieldsDomain.Filter,
	create, update fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	if len(whereFilter) == 0 {
		return nil, ErrUnboundedFilter
	}
	table, err := s.table(entity)
	if err != nil {
		return nil, err
	}

	var out fieldsDomain.Record
	err = s.txManager.WithTx(ctx, func(ctx context.Context) error {
		id, found, err := s.lockOne(ctx, table, whereFilter)
		if err != nil {
			return err
		}
		if found {
			if err := s.updateByID(ctx, table, id, update); err != nil {
				return err
			}
		} else {
			row, err := newRecord(mergeWhere(create, whereFilter), s.now())
			if err != nil {
				return err
			}
			if err := checkColumns(row); err != nil {
				return err
			}
			if _, err := s.exec(ctx, s.builder.Insert(table).SetMap(row)); err != nil {
				return translateError(err, "failed to insert record")
			}
			id = row[fieldsDomain.IDColumn]
		}
		recs, err := s.selectByIDs(ctx, table, []any{id})
		if err != nil {
			return apperrors.Wrap(err, "failed to read upserted record")
		}
		if len(recs) == 0 {
			return fieldsDomain.ErrRecordNotFound
		}
		out = recs[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) BulkUpdate(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	patch fieldsDomain.Record,
) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	table, err := s.table(entity)
	if err != nil {
		return 0, err
	}
	cond, err := where(filter)
	if err != nil {
		return 0, err
	}

	set := patch.Clone()
	if set == nil {
		set = fieldsDomain.Record{}
	}
	delete(set, fieldsDomain.IDColumn)
	set[UpdatedAtColumn] = s.now()
	if err := checkColumns(set); err != nil {
		return 0, err
	}

	n, err := s.exec(ctx, s.builder.Update(table).SetMap(set).Where(cond))
	if err != nil {
		return 0, translateError(err, "failed to update records")
	}
	return n, nil
}

func (s *SQLStore) FindOne(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
) (fieldsDomain.Record, error) {
	recs, err := s.FindMany(ctx, entity, filter, fieldsDomain.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fieldsDomain.ErrRecordNotFound
	}
	return recs[0], nil
}

func (s *SQLStore) FindMany(
	ctx context.Context,
	entity string,
	filter fieldsDomain.Filter,
	opts fieldsDomain.FindOptions,
) ([]fieldsDomain.Record, error) {
	table, err := s.table(entity)
	if err != nil {
		return nil, err
	}

	builder := s.builder.Select("*").From(table)
	if len(filter) > 0 {
		cond, err := where(filter)
		if err != nil {
			return nil, err
		}
		builder = builder.Where(cond)
	}
	if opts.OrderBy != "" {
		column, desc := orderColumn(opts.OrderBy)
		if err := validation.Validate(column, appValidation.Identifier); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidColumn, column, err)
		}
		if desc {
			column += " DESC"
		}
		builder = builder.OrderBy(column)
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		builder = builder.Offset(uint64(opts.Offset))
	}

	recs, err := s.query(ctx, builder)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to find records")
	}
	return recs, nil
}

func (s *SQLStore) Delete(ctx context.Context, entity string, filter fieldsDomain.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, ErrUnboundedFilter
	}
	table, err := s.table(entity)
	if err != nil {
		return 0, err
	}
	cond, err := where(filter)
	if err != nil {
		return 0, err
	}

	n, err := s.exec(ctx, s.builder.Delete(table).Where(cond))
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete records")
	}
	return n, nil
}
