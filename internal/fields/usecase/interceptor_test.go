package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

func TestInterceptor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	created, err := f.store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{
		"first_name": "John",
		"last_name":  "Doe",
		"email":      "john.doe@example.com",
		"role":       "member",
	})
	require.NoError(t, err)
	assert.Equal(t, "john.doe@example.com", created["email"])
	assert.Equal(t, "John", created["first_name"])
	assert.NotContains(t, created, "email_encrypted")
	id := created[fieldsDomain.IDColumn]

	t.Run("BackendHoldsOnlyCiphertext", func(t *testing.T) {
		stored, err := f.backend.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{fieldsDomain.IDColumn: id})
		require.NoError(t, err)

		assert.NotContains(t, stored, "email")
		assert.NotContains(t, stored, "first_name")
		assert.NotEmpty(t, stored["email_encrypted"])
		assert.Equal(t, mustDigest(t, "john.doe@example.com"), stored["email_hash"])
		for _, v := range stored {
			if s, ok := v.(string); ok {
				assert.NotContains(t, s, "john.doe")
			}
		}
	})

	t.Run("FindOneByLogicalName", func(t *testing.T) {
		rec, err := f.store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email": "JOHN.DOE@example.com"})
		require.NoError(t, err)
		assert.Equal(t, id, rec[fieldsDomain.IDColumn])
		assert.Equal(t, "john.doe@example.com", rec["email"])
		assert.Equal(t, "Doe", rec["last_name"])
	})

	t.Run("UpdateReencrypts", func(t *testing.T) {
		rec, err := f.store.Update(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{fieldsDomain.IDColumn: id},
			fieldsDomain.Record{"phone": "+1 555 0100"},
		)
		require.NoError(t, err)
		assert.Equal(t, "+1 555 0100", rec["phone"])
		assert.Equal(t, "john.doe@example.com", rec["email"])
	})

	t.Run("Upsert", func(t *testing.T) {
		rec, err := f.store.Upsert(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{"email": "john.doe@example.com"},
			fieldsDomain.Record{"email": "john.doe@example.com", "role": "member"},
			fieldsDomain.Record{"role": "admin"},
		)
		require.NoError(t, err)
		assert.Equal(t, id, rec[fieldsDomain.IDColumn])
		assert.Equal(t, "admin", rec["role"])

		fresh, err := f.store.Upsert(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{"email": "jane@example.com"},
			fieldsDomain.Record{"email": "jane@example.com", "first_name": "Jane"},
			fieldsDomain.Record{"role": "admin"},
		)
		require.NoError(t, err)
		assert.NotEqual(t, id, fresh[fieldsDomain.IDColumn])
		assert.Equal(t, "Jane", fresh["first_name"])
		assert.Equal(t, "jane@example.com", fresh["email"])
	})

	t.Run("UpsertInsertStoresWhereFieldEncrypted", func(t *testing.T) {
		rec, err := f.store.Upsert(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{"email": "new@example.com"},
			fieldsDomain.Record{"first_name": "New"},
			fieldsDomain.Record{"role": "admin"},
		)
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", rec["email"])
		assert.Equal(t, "New", rec["first_name"])

		stored, err := f.backend.FindOne(ctx, fieldsDomain.UserEntity,
			fieldsDomain.Filter{fieldsDomain.IDColumn: rec[fieldsDomain.IDColumn]})
		require.NoError(t, err)
		assert.NotEmpty(t, stored["email_encrypted"])
		assert.Equal(t, mustDigest(t, "new@example.com"), stored["email_hash"])
		assert.NotContains(t, stored, "email")

		found, err := f.store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email": "new@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "new@example.com", found["email"])
	})

	t.Run("BulkCreateAndFindMany", func(t *testing.T) {
		recs, err := f.store.BulkCreate(ctx, fieldsDomain.ProfessionalProfileEntity, []fieldsDomain.Record{
			{"user_id": id, "employer": "Acme", "job_title": "Engineer"},
			{"user_id": id, "employer": "Globex", "job_title": "Manager"},
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "Acme", recs[0]["employer"])
		assert.Equal(t, "Globex", recs[1]["employer"])

		found, err := f.store.FindMany(ctx, fieldsDomain.ProfessionalProfileEntity,
			fieldsDomain.Filter{"user_id": id},
			fieldsDomain.FindOptions{OrderBy: "employer_hash"},
		)
		require.NoError(t, err)
		require.Len(t, found, 2)
		titles := []any{found[0]["job_title"], found[1]["job_title"]}
		assert.ElementsMatch(t, []any{"Engineer", "Manager"}, titles)
	})

	t.Run("BulkUpdate", func(t *testing.T) {
		n, err := f.store.BulkUpdate(ctx, fieldsDomain.ProfessionalProfileEntity,
			fieldsDomain.Filter{"employer": "acme"},
			fieldsDomain.Record{"job_title": "Staff Engineer"},
		)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rec, err := f.store.FindOne(ctx, fieldsDomain.ProfessionalProfileEntity, fieldsDomain.Filter{"employer": "Acme"})
		require.NoError(t, err)
		assert.Equal(t, "Staff Engineer", rec["job_title"])
	})

	t.Run("Delete", func(t *testing.T) {
		n, err := f.store.Delete(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email": "jane@example.com"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = f.store.FindOne(ctx, fieldsDomain.UserEntity, fieldsDomain.Filter{"email": "jane@example.com"})
		assert.ErrorIs(t, err, fieldsDomain.ErrRecordNotFound)
	})
}

func TestInterceptor_WriteFailureNeverReachesBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.store.Create(ctx, fieldsDomain.UserEntity, fieldsDomain.Record{"email": "", "role": "x"})
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryption)

		recs, err := f.backend.FindMany(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.FindOptions{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("BulkCreate", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.store.BulkCreate(ctx, fieldsDomain.UserEntity, []fieldsDomain.Record{
			{"email": "ok@example.com"},
			{"email": 7},
		})
		assert.ErrorIs(t, err, cryptoDomain.ErrEncryption)
		assert.Contains(t, err.Error(), "record 1")

		recs, err := f.backend.FindMany(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.FindOptions{})
		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

func TestInterceptor_ReadSurvivesCorruptRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.store.BulkCreate(ctx, fieldsDomain.UserEntity, []fieldsDomain.Record{
		{"email": "good@example.com"},
		{"email": "bad@example.com"},
	})
	require.NoError(t, err)

	_, err = f.backend.Update(ctx, fieldsDomain.UserEntity,
		fieldsDomain.Filter{"email_hash": mustDigest(t, "bad@example.com")},
		fieldsDomain.Record{"email_encrypted": "corrupted"},
	)
	require.NoError(t, err)

	recs, err := f.store.FindMany(ctx, fieldsDomain.UserEntity, nil, fieldsDomain.FindOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	emails := []any{recs[0]["email"], recs[1]["email"]}
	assert.ElementsMatch(t, []any{"good@example.com", nil}, emails)
	assert.Equal(t, int64(1), f.metrics.decryptFailures.Load())
}
