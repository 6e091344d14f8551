package usecase

import (
	"context"
	"time"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

// keyDirectoryWithMetrics decorates KeyDirectory with metrics instrumentation.
type keyDirectoryWithMetrics struct {
	next    KeyDirectory
	metrics metrics.BusinessMetrics
}

// NewKeyDirectoryWithMetrics wraps a KeyDirectory with metrics recording.
func NewKeyDirectoryWithMetrics(next KeyDirectory, m metrics.BusinessMetrics) KeyDirectory {
	return &keyDirectoryWithMetrics{next: next, metrics: m}
}

func (k *keyDirectoryWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, "keys", operation, status)
	k.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

// GetKey records metrics for key lookups.
func (k *keyDirectoryWithMetrics) GetKey(ctx context.Context, name keysDomain.KeyName) (*keysDomain.KeyRecord, error) {
	start := time.Now()
	rec, err := k.next.GetKey(ctx, name)
	k.record(ctx, "key_get", start, err)
	return rec, err
}

func (k *keyDirectoryWithMetrics) GetNamesKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return k.GetKey(ctx, keysDomain.NamesKey)
}

func (k *keyDirectoryWithMetrics) GetPhoneKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return k.GetKey(ctx, keysDomain.PhoneKey)
}

func (k *keyDirectoryWithMetrics) GetEmailKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return k.GetKey(ctx, keysDomain.EmailKey)
}

func (k *keyDirectoryWithMetrics) GetAcademicKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return k.GetKey(ctx, keysDomain.AcademicKey)
}

func (k *keyDirectoryWithMetrics) GetProfessionalKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return k.GetKey(ctx, keysDomain.ProfessionalKey)
}

func (k *keyDirectoryWithMetrics) ClearCache() {
	k.next.ClearCache()
	k.metrics.RecordOperation(context.Background(), "keys", "cache_clear", "success")
}

func (k *keyDirectoryWithMetrics) CacheStats() keysDomain.CacheStats {
	return k.next.CacheStats()
}

// PreloadKeys records one operation per preloaded name.
func (k *keyDirectoryWithMetrics) PreloadKeys(ctx context.Context) keysDomain.PreloadReport {
	start := time.Now()
	report := k.next.PreloadKeys(ctx)
	for range report.Loaded {
		k.metrics.RecordOperation(ctx, "keys", "key_preload", "success")
	}
	for range report.Failed {
		k.metrics.RecordOperation(ctx, "keys", "key_preload", "error")
	}
	k.metrics.RecordDuration(ctx, "keys", "key_preload", time.Since(start), "success")
	return report
}
