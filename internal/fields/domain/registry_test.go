package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

func TestNewSensitiveField(t *testing.T) {
	f := NewSensitiveField("email", keysDomain.EmailKey)

	assert.Equal(t, "email", f.LogicalName)
	assert.Equal(t, "email_encrypted", f.CiphertextColumn)
	assert.Equal(t, "email_hash", f.DigestColumn)
	assert.Equal(t, keysDomain.EmailKey, f.KeyName)
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{AcademicRecordEntity, ProfessionalProfileEntity, UserEntity}, r.Entities())

	t.Run("UserFields", func(t *testing.T) {
		fields, err := r.Fields(UserEntity)
		require.NoError(t, err)

		byName := make(map[string]keysDomain.KeyName)
		for _, f := range fields {
			byName[f.LogicalName] = f.KeyName
		}
		assert.Equal(t, map[string]keysDomain.KeyName{
			"first_name": keysDomain.NamesKey,
			"last_name":  keysDomain.NamesKey,
			"email":      keysDomain.EmailKey,
			"phone":      keysDomain.PhoneKey,
		}, byName)
	})

	t.Run("Field", func(t *testing.T) {
		f, ok := r.Field(AcademicRecordEntity, "degree")
		require.True(t, ok)
		assert.Equal(t, keysDomain.AcademicKey, f.KeyName)

		_, ok = r.Field(AcademicRecordEntity, "email")
		assert.False(t, ok)
		_, ok = r.Field("invoice", "email")
		assert.False(t, ok)
	})

	t.Run("Error_UnknownEntity", func(t *testing.T) {
		_, err := r.Fields("invoice")
		assert.ErrorIs(t, err, ErrUnknownEntity)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("KeyNamesCoverKnownNames", func(t *testing.T) {
		assert.ElementsMatch(t, keysDomain.KnownKeyNames(), r.KeyNames())
	})

	t.Run("FieldsIsACopy", func(t *testing.T) {
		fields, err := r.Fields(UserEntity)
		require.NoError(t, err)
		fields[0].KeyName = "tampered"

		again, err := r.Fields(UserEntity)
		require.NoError(t, err)
		assert.NotEqual(t, keysDomain.KeyName("tampered"), again[0].KeyName)
	})
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
	}{
		{
			name:   "Error_MissingTable",
			entity: Entity{Name: "user"},
		},
		{
			name: "Error_MissingKeyName",
			entity: Entity{Name: "user", Table: "users", Fields: []SensitiveField{
				NewSensitiveField("email", ""),
			}},
		},
		{
			name: "Error_NonDerivedColumn",
			entity: Entity{Name: "user", Table: "users", Fields: []SensitiveField{
				{LogicalName: "email", CiphertextColumn: "email_enc", DigestColumn: "email_hash", KeyName: keysDomain.EmailKey},
			}},
		},
		{
			name: "Error_DuplicateField",
			entity: Entity{Name: "user", Table: "users", Fields: []SensitiveField{
				NewSensitiveField("email", keysDomain.EmailKey),
				NewSensitiveField("email", keysDomain.EmailKey),
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.entity)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}

	t.Run("Error_DuplicateEntity", func(t *testing.T) {
		e := Entity{Name: "user", Table: "users"}
		_, err := NewRegistry(e, e)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestRecordAndFilterClone(t *testing.T) {
	r := Record{"a": 1}
	c := r.Clone()
	c["a"] = 2
	assert.Equal(t, 1, r["a"])
	assert.Nil(t, Record(nil).Clone())

	f := Filter{"a": 1}
	fc := f.Clone()
	delete(fc, "a")
	assert.Len(t, f, 1)
}
