package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

func newMockSQLStore(t *testing.T, driver string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := NewSQLStore(db, driver, fieldsDomain.DefaultRegistry())
	require.NoError(t, err)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, mock
}

func userColumns() []string {
	return []string{"id", "email_encrypted", "email_hash", "created_at", "updated_at"}
}

func TestNewSQLStore(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	_, err = NewSQLStore(db, "sqlite", fieldsDomain.DefaultRegistry())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSQLStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PostgreSQL", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)
		now := store.now()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (created_at,email_encrypted,email_hash,id,updated_at) VALUES ($1,$2,$3,$4,$5)")).
			WithArgs(now, "envelope", "digest", "rec-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id IN ($1)")).
			WithArgs("rec-1").
			WillReturnRows(sqlmock.NewRows(userColumns()).AddRow("rec-1", "envelope", "digest", now, now))
		mock.ExpectCommit()

		rec, err := store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{
			"id":              "rec-1",
			"email_encrypted": "envelope",
			"email_hash":      "digest",
		})
		require.NoError(t, err)
		assert.Equal(t, "rec-1", rec["id"])
		assert.Equal(t, "envelope", rec["email_encrypted"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_MySQLPlaceholders", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverMySQL)
		now := store.now()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (created_at,email_hash,id,updated_at) VALUES (?,?,?,?)")).
			WithArgs(now, "digest", "rec-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id IN (?)")).
			WithArgs("rec-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email_hash"}).AddRow([]byte("rec-1"), []byte("digest")))
		mock.ExpectCommit()

		rec, err := store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{"id": "rec-1", "email_hash": "digest"})
		require.NoError(t, err)
		assert.Equal(t, "digest", rec["email_hash"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_DuplicateDigest", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_hash_key"})
		mock.ExpectRollback()

		_, err := store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{"email_hash": "digest"})
		assert.ErrorIs(t, err, ErrDuplicateRecord)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_InvalidColumn", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		_, err := store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{`email"; DROP TABLE users; --`: "x"})
		assert.ErrorIs(t, err, ErrInvalidColumn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UnknownEntity", func(t *testing.T) {
		store, _ := newMockSQLStore(t, DriverPostgres)

		_, err := store.Create(ctx, "invoice", fieldsDomain.Record{"total": 1})
		assert.ErrorIs(t, err, fieldsDomain.ErrUnknownEntity)
	})
}

func TestSQLStore_FindOne(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)
		now := store.now()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE email_hash = $1 LIMIT 1")).
			WithArgs("digest").
			WillReturnRows(sqlmock.NewRows(userColumns()).AddRow("rec-1", "envelope", "digest", now, now))

		rec, err := store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email_hash": "digest"})
		require.NoError(t, err)
		assert.Equal(t, "rec-1", rec["id"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE email_hash = $1 LIMIT 1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(userColumns()))

		_, err := store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email_hash": "missing"})
		assert.ErrorIs(t, err, fieldsDomain.ErrRecordNotFound)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestSQLStore_FindMany(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_OrderAndPage", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)
		now := store.now()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM academic_records ORDER BY created_at DESC LIMIT 10 OFFSET 20")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
				AddRow("b", now).
				AddRow("a", now))

		recs, err := store.FindMany(ctx, fieldsDomain.AcademicRecordEntity, nil, fieldsDomain.FindOptions{
			OrderBy: "-created_at",
			Limit:   10,
			Offset:  20,
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "b", recs[0]["id"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_InvalidOrderBy", func(t *testing.T) {
		store, _ := newMockSQLStore(t, DriverPostgres)

		_, err := store.FindMany(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.FindOptions{OrderBy: "id; DROP TABLE users"})
		assert.ErrorIs(t, err, ErrInvalidColumn)
	})
}

func TestSQLStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)
		now := store.now()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email_hash = $1 LIMIT 1 FOR UPDATE")).
			WithArgs("digest").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("rec-1"))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET phone_encrypted = $1, phone_hash = $2, updated_at = $3 WHERE id = $4")).
			WithArgs("phone-envelope", "phone-digest", now, "rec-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id IN ($1)")).
			WithArgs("rec-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "phone_encrypted"}).AddRow("rec-1", "phone-envelope"))
		mock.ExpectCommit()

		rec, err := store.Update(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{"email_hash": "digest"},
			fieldsDomain.Record{"phone_encrypted": "phone-envelope", "phone_hash": "phone-digest"},
		)
		require.NoError(t, err)
		assert.Equal(t, "phone-envelope", rec["phone_encrypted"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_NotFoundRollsBack", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE id = $1 LIMIT 1 FOR UPDATE")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err := store.Update(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": "missing"}, fieldsDomain.Record{"role": "admin"})
		assert.ErrorIs(t, err, fieldsDomain.ErrRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_Upsert_Inserts(t *testing.T) {
	store, mock := newMockSQLStore(t, DriverPostgres)
	now := store.now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE email_hash = $1 LIMIT 1 FOR UPDATE")).
		WithArgs("digest").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (created_at,email_encrypted,email_hash,id,updated_at) VALUES ($1,$2,$3,$4,$5)")).
		WithArgs(now, "envelope", "digest", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id IN ($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email_hash"}).AddRow("generated", "digest"))
	mock.ExpectCommit()

	rec, err := store.Upsert(context.Background(), fieldsDomain.UserEntity,
		fieldsDomain.Filter{"email_hash": "digest"},
		fieldsDomain.Record{"email_encrypted": "envelope"},
		fieldsDomain.Record{"email_encrypted": "envelope"},
	)
	require.NoError(t, err)
	assert.Equal(t, "digest", rec["email_hash"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_BulkUpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_BulkUpdate", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)
		now := store.now()

		mock.ExpectExec(regexp.QuoteMeta("UPDATE professional_profiles SET job_title_hash = $1, updated_at = $2 WHERE user_id = $3")).
			WithArgs("digest", now, "u-1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := store.BulkUpdate(ctx, fieldsDomain.ProfessionalProfileEntity,
			fieldsDomain.Filter{"user_id": "u-1"},
			fieldsDomain.Record{"job_title_hash": "digest"},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_Delete", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
			WithArgs("rec-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := store.Delete(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"id": "rec-1"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_UnboundedFilter", func(t *testing.T) {
		store, mock := newMockSQLStore(t, DriverPostgres)

		_, err := store.Delete(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{})
		assert.ErrorIs(t, err, ErrUnboundedFilter)
		_, err = store.BulkUpdate(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.Record{"role": "x"})
		assert.ErrorIs(t, err, ErrUnboundedFilter)
		_, err = store.Update(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{}, fieldsDomain.Record{"role": "x"})
		assert.ErrorIs(t, err, ErrUnboundedFilter)
		_, err = store.Upsert(ctx, fieldsDomain.UserEntity, nil,
			fieldsDomain.Record{"email_hash": "c"}, fieldsDomain.Record{"role": "owner"})
		assert.ErrorIs(t, err, ErrUnboundedFilter)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
