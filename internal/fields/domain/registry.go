// Package domain defines the field registry: the static table of sensitive
// fields per entity type, and the record shapes exchanged with storage.
package domain

import (
	"fmt"
	"sort"

	"github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// Storage column suffixes for sensitive fields.
const (
	CiphertextSuffix = "_encrypted"
	DigestSuffix     = "_hash"
)

// Entity type names.
const (
	UserEntity                = "user"
	AcademicRecordEntity      = "academic_record"
	ProfessionalProfileEntity = "professional_profile"
)

// ErrUnknownEntity indicates the entity type has no registry entry.
var ErrUnknownEntity = errors.Wrap(errors.ErrInvalidInput, "unknown entity")

// SensitiveField maps a logical field to the storage columns holding its
// ciphertext envelope and digest, and to the key-name protecting it.
type SensitiveField struct {
	LogicalName      string
	CiphertextColumn string
	DigestColumn     string
	KeyName          keysDomain.KeyName
}

// NewSensitiveField derives the storage columns from logicalName.
func NewSensitiveField(logicalName string, keyName keysDomain.KeyName) SensitiveField {
	return SensitiveField{
		LogicalName:      logicalName,
		CiphertextColumn: CiphertextColumn(logicalName),
		DigestColumn:     DigestColumn(logicalName),
		KeyName:          keyName,
	}
}

// CiphertextColumn returns the ciphertext column name for a logical field.
func CiphertextColumn(logicalName string) string {
	return logicalName + CiphertextSuffix
}

// DigestColumn returns the digest column name for a logical field.
func DigestColumn(logicalName string) string {
	return logicalName + DigestSuffix
}

// Entity is a registry entry.
type Entity struct {
	Name   string
	Table  string
	Fields []SensitiveField
}

// Registry is a read-only table of entities. It is safe for concurrent use
// because nothing mutates it after construction.
type Registry struct {
	entities map[string]Entity
}

// NewRegistry builds a registry, rejecting fields whose columns do not follow
// the naming convention or that lack a key-name.
func NewRegistry(entities ...Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]Entity, len(entities))}
	for _, e := range entities {
		if e.Name == "" || e.Table == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "entity needs a name and a table")
		}
		if _, dup := r.entities[e.Name]; dup {
			return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("entity %q registered twice", e.Name))
		}
		seen := make(map[string]struct{}, len(e.Fields))
		fields := make([]SensitiveField, 0, len(e.Fields))
		for _, f := range e.Fields {
			if err := validateField(f); err != nil {
				return nil, errors.Wrap(err, fmt.Sprintf("entity %q", e.Name))
			}
			if _, dup := seen[f.LogicalName]; dup {
				return nil, errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("entity %q: field %q registered twice", e.Name, f.LogicalName))
			}
			seen[f.LogicalName] = struct{}{}
			fields = append(fields, f)
		}
		e.Fields = fields
		r.entities[e.Name] = e
	}
	return r, nil
}

func validateField(f SensitiveField) error {
	switch {
	case f.LogicalName == "":
		return errors.Wrap(errors.ErrInvalidInput, "field has no logical name")
	case f.KeyName == "":
		return errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("field %q has no key-name", f.LogicalName))
	case f.CiphertextColumn != CiphertextColumn(f.LogicalName), f.DigestColumn != DigestColumn(f.LogicalName):
		return errors.Wrap(errors.ErrInvalidInput, fmt.Sprintf("field %q columns do not follow the naming convention", f.LogicalName))
	}
	return nil
}

// DefaultRegistry returns the registry of the application's PII-bearing entities.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		Entity{
			Name:  UserEntity,
			Table: "users",
			Fields: []SensitiveField{
				NewSensitiveField("first_name", keysDomain.NamesKey),
				NewSensitiveField("last_name", keysDomain.NamesKey),
				NewSensitiveField("email", keysDomain.EmailKey),
				NewSensitiveField("phone", keysDomain.PhoneKey),
			},
		},
		Entity{
			Name:  AcademicRecordEntity,
			Table: "academic_records",
			Fields: []SensitiveField{
				NewSensitiveField("institution", keysDomain.AcademicKey),
				NewSensitiveField("degree", keysDomain.AcademicKey),
			},
		},
		Entity{
			Name:  ProfessionalProfileEntity,
			Table: "professional_profiles",
			Fields: []SensitiveField{
				NewSensitiveField("employer", keysDomain.ProfessionalKey),
				NewSensitiveField("job_title", keysDomain.ProfessionalKey),
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Entity returns the registry entry for name.
func (r *Registry) Entity(name string) (Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return Entity{}, errors.Wrap(ErrUnknownEntity, name)
	}
	e.Fields = append([]SensitiveField(nil), e.Fields...)
	return e, nil
}

// Fields returns the sensitive fields of an entity in declaration order.
func (r *Registry) Fields(entity string) ([]SensitiveField, error) {
	e, err := r.Entity(entity)
	if err != nil {
		return nil, err
	}
	return e.Fields, nil
}

// Field looks up a single sensitive field by logical name.
func (r *Registry) Field(entity, logicalName string) (SensitiveField, bool) {
	e, ok := r.entities[entity]
	if !ok {
		return SensitiveField{}, false
	}
	for _, f := range e.Fields {
		if f.LogicalName == logicalName {
			return f, true
		}
	}
	return SensitiveField{}, false
}

// Entities returns the registered entity names, sorted.
func (r *Registry) Entities() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeyNames returns the distinct key-names referenced by the registry, sorted.
func (r *Registry) KeyNames() []keysDomain.KeyName {
	seen := make(map[keysDomain.KeyName]struct{})
	for _, e := range r.entities {
		for _, f := range e.Fields {
			seen[f.KeyName] = struct{}{}
		}
	}
	names := make([]keysDomain.KeyName, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
