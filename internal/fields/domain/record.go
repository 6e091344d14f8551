package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// ErrRecordNotFound indicates no stored record matched the filter.
var ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "record not found")

// ErrInvalidFilter indicates a filter value cannot be matched against storage.
var ErrInvalidFilter = errors.Wrap(errors.ErrInvalidInput, "invalid filter")

// IDColumn is the primary key column every entity carries.
const IDColumn = "id"

// Record is a row-like map of column names to values.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Filter is a conjunction of column equality conditions. A nil value matches NULL.
type Filter map[string]any

// Clone returns a shallow copy of f.
func (f Filter) Clone() Filter {
	if f == nil {
		return nil
	}
	c := make(Filter, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}

// FindOptions controls paging and ordering of FindMany.
type FindOptions struct {
	// OrderBy is a column name; prefix with "-" for descending order.
	OrderBy string
	Limit   int
	Offset  int
}
