package repository

import (
	"github.com/allisson/fieldcrypt/internal/errors"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
)

var (
	// ErrDuplicateRecord indicates a write violated a unique constraint.
	ErrDuplicateRecord = errors.Wrap(errors.ErrConflict, "duplicate record")

	// ErrUnboundedFilter rejects writes and deletes without conditions.
	ErrUnboundedFilter = errors.Wrap(fieldsDomain.ErrInvalidFilter, "filter must have at least one condition")

	// ErrInvalidColumn indicates a column name is not a plain SQL identifier.
	ErrInvalidColumn = errors.Wrap(errors.ErrInvalidInput, "invalid column name")
)
