package usecase

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysUsecase "github.com/allisson/fieldcrypt/internal/keys/usecase"
	"github.com/allisson/fieldcrypt/internal/metrics"
	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// Transformer implements FieldTransformer on top of the key directory and the
// cipher and digest engines. It holds no per-operation state.
type Transformer struct {
	registry *fieldsDomain.Registry
	keys     keysUsecase.KeyDirectory
	cipher   cryptoService.CipherEngine
	digest   cryptoService.DigestEngine
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(
	registry *fieldsDomain.Registry,
	keys keysUsecase.KeyDirectory,
	cipher cryptoService.CipherEngine,
	digest cryptoService.DigestEngine,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Transformer {
	return &Transformer{
		registry: registry,
		keys:     keys,
		cipher:   cipher,
		digest:   digest,
		metrics:  businessMetrics,
		logger:   logger,
	}
}

// keyring holds the keys resolved during one operation so a record with
// several fields under the same key-name fetches it once.
type keyring struct {
	dir  keysUsecase.KeyDirectory
	held map[keysDomain.KeyName]*keysDomain.KeyRecord
}

func newKeyring(dir keysUsecase.KeyDirectory) *keyring {
	return &keyring{dir: dir, held: make(map[keysDomain.KeyName]*keysDomain.KeyRecord)}
}

func (k *keyring) get(ctx context.Context, name keysDomain.KeyName) ([]byte, error) {
	if rec, ok := k.held[name]; ok {
		return rec.Key, nil
	}
	rec, err := k.dir.GetKey(ctx, name)
	if err != nil {
		return nil, err
	}
	k.held[name] = rec
	return rec.Key, nil
}

func (k *keyring) zero() {
	for _, rec := range k.held {
		rec.Zero()
	}
}

// EncryptRecord replaces each sensitive field of rec with its envelope and
// digest columns. Keys are resolved once per call.
func (t *Transformer) EncryptRecord(
	ctx context.Context,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	ring := newKeyring(t.keys)
	defer ring.zero()
	return t.encrypt(ctx, ring, entity, rec)
}

// EncryptRecords encrypts every record, failing on the first error.
func (t *Transformer) EncryptRecords(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	ring := newKeyring(t.keys)
	defer ring.zero()

	out := make([]fieldsDomain.Record, len(recs))
	for i, rec := range recs {
		enc, err := t.encrypt(ctx, ring, entity, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func (t *Transformer) encrypt(
	ctx context.Context,
	ring *keyring,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	fields, err := t.registry.Fields(entity)
	if err != nil {
		return nil, err
	}

	out := rec.Clone()
	for _, f := range fields {
		v, ok := out[f.LogicalName]
		if !ok {
			continue
		}
		delete(out, f.LogicalName)
		if v == nil {
			continue
		}

		plaintext, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %s must be a string, got %T", cryptoDomain.ErrEncryption, f.LogicalName, v)
		}

		key, err := ring.get(ctx, f.KeyName)
		if err != nil {
			return nil, err
		}
		env, err := t.cipher.Encrypt(plaintext, key)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.LogicalName, err)
		}
		column, err := env.Marshal()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.LogicalName, err)
		}
		digest, err := t.digest.DeterministicHash(plaintext)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", cryptoDomain.ErrEncryption, f.LogicalName, err)
		}

		out[f.CiphertextColumn] = column
		out[f.DigestColumn] = digest
	}
	return out, nil
}

// DecryptRecord restores plaintext for every ciphertext column present in rec.
func (t *Transformer) DecryptRecord(
	ctx context.Context,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	ring := newKeyring(t.keys)
	defer ring.zero()
	return t.decrypt(ctx, ring, entity, rec)
}

// DecryptRecords decrypts recs in order, sharing resolved keys across them.
func (t *Transformer) DecryptRecords(
	ctx context.Context,
	entity string,
	recs []fieldsDomain.Record,
) ([]fieldsDomain.Record, error) {
	ring := newKeyring(t.keys)
	defer ring.zero()

	out := make([]fieldsDomain.Record, len(recs))
	for i, rec := range recs {
		dec, err := t.decrypt(ctx, ring, entity, rec)
		if err != nil {
			return nil, err
		}
		out[i] = dec
	}
	return out, nil
}

func (t *Transformer) decrypt(
	ctx context.Context,
	ring *keyring,
	entity string,
	rec fieldsDomain.Record,
) (fieldsDomain.Record, error) {
	fields, err := t.registry.Fields(entity)
	if err != nil {
		return nil, err
	}

	out := rec.Clone()
	for _, f := range fields {
		v, ok := out[f.CiphertextColumn]
		delete(out, f.CiphertextColumn)
		delete(out, f.DigestColumn)
		if !ok {
			continue
		}

		column, present := columnText(v)
		if !present {
			out[f.LogicalName] = nil
			continue
		}

		key, err := ring.get(ctx, f.KeyName)
		if err != nil {
			return nil, err
		}

		plaintext, err := t.open(column, key)
		if err != nil {
			t.reportDecryptFailure(ctx, entity, rec, f, err)
			out[f.LogicalName] = nil
			continue
		}
		out[f.LogicalName] = plaintext
	}
	return out, nil
}

func (t *Transformer) open(column string, key []byte) (string, error) {
	env, err := cryptoDomain.ParseEnvelope(column)
	if err != nil {
		return "", err
	}
	return t.cipher.Decrypt(env, key)
}

// reportDecryptFailure emits the security event for a field that could not be
// decrypted. Only identifiers are logged.
func (t *Transformer) reportDecryptFailure(
	ctx context.Context,
	entity string,
	rec fieldsDomain.Record,
	f fieldsDomain.SensitiveField,
	err error,
) {
	attrs := []any{
		slog.String("entity", entity),
		slog.String("field", f.LogicalName),
		slog.String("key_name", string(f.KeyName)),
		slog.Any("error", err),
	}
	if id, ok := rec[fieldsDomain.IDColumn]; ok {
		attrs = append(attrs, slog.Any("record_id", id))
	}
	t.logger.WarnContext(ctx, "field decryption failed", attrs...)
	t.metrics.RecordOperation(ctx, "fields", "field_decrypt", "error")
}

// columnText normalizes a stored ciphertext value. Drivers return text
// columns as either string or []byte.
func columnText(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	default:
		return fmt.Sprint(v), true
	}
}

// RewriteFilter replaces sensitive logical names in filter with their digest
// columns. Caller-supplied digest values must be well-formed hex digests.
func (t *Transformer) RewriteFilter(entity string, filter fieldsDomain.Filter) (fieldsDomain.Filter, error) {
	fields, err := t.registry.Fields(entity)
	if err != nil {
		return nil, err
	}

	out := filter.Clone()
	for _, f := range fields {
		if err := checkDigestCondition(f.DigestColumn, filter); err != nil {
			return nil, err
		}

		v, ok := out[f.LogicalName]
		if !ok {
			continue
		}
		delete(out, f.LogicalName)

		if v == nil {
			out[f.DigestColumn] = nil
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %s must be compared to a string, got %T", fieldsDomain.ErrInvalidFilter, f.LogicalName, v)
		}
		digest, err := t.digest.DeterministicHash(s)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", fieldsDomain.ErrInvalidFilter, f.LogicalName, err)
		}
		out[f.DigestColumn] = digest
	}
	return out, nil
}

// checkDigestCondition validates a digest column compared directly by the
// caller. NULL comparisons are allowed.
func checkDigestCondition(column string, filter fieldsDomain.Filter) error {
	v, ok := filter[column]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be compared to a string, got %T", fieldsDomain.ErrInvalidFilter, column, v)
	}
	if err := validation.Validate(s, appValidation.HexDigest); err != nil {
		return fmt.Errorf("%w: %s %w", fieldsDomain.ErrInvalidFilter, column, err)
	}
	return nil
}
