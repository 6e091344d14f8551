package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheMaxSize = 100
	DefaultFetchTimeout = 5 * time.Second
)

// Options tunes a key directory.
type Options struct {
	StoreConfig  keysDomain.StoreConfig
	CacheTTL     time.Duration
	CacheMaxSize int
	FetchTimeout time.Duration
	// FetchRateLimit caps remote fetches per second; zero disables limiting.
	FetchRateLimit float64
	FetchBurst     int
	// KeyNames overrides the set of names preloaded; defaults to KnownKeyNames.
	KeyNames []keysDomain.KeyName
}

type keyDirectory struct {
	store        keysService.SecretStore
	cache        *keysService.KeyCache
	storeConfig  keysDomain.StoreConfig
	fetchTimeout time.Duration
	limiter      *rate.Limiter
	group        singleflight.Group
	keyNames     []keysDomain.KeyName
	logger       *slog.Logger
}

// NewKeyDirectory creates a key directory reading from store. Each directory
// owns its own cache.
func NewKeyDirectory(store keysService.SecretStore, opts Options, logger *slog.Logger) KeyDirectory {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheMaxSize <= 0 {
		opts.CacheMaxSize = DefaultCacheMaxSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if len(opts.KeyNames) == 0 {
		opts.KeyNames = keysDomain.KnownKeyNames()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.FetchRateLimit > 0 {
		burst := opts.FetchBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.FetchRateLimit), burst)
	}

	return &keyDirectory{
		store:        store,
		cache:        keysService.NewKeyCache(opts.CacheTTL, opts.CacheMaxSize),
		storeConfig:  opts.StoreConfig,
		fetchTimeout: opts.FetchTimeout,
		limiter:      limiter,
		keyNames:     opts.KeyNames,
		logger:       logger,
	}
}

func (d *keyDirectory) GetKey(ctx context.Context, name keysDomain.KeyName) (*keysDomain.KeyRecord, error) {
	if rec, ok := d.cache.Get(name); ok {
		return rec, nil
	}

	v, err, _ := d.group.Do(string(name), func() (any, error) {
		if rec, ok := d.cache.Get(name); ok {
			return rec, nil
		}
		rec, err := d.fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		d.cache.Set(rec)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keysDomain.KeyRecord).Clone(), nil
}

// fetch runs the remote retrieval and validation pipeline for name.
func (d *keyDirectory) fetch(ctx context.Context, name keysDomain.KeyName) (*keysDomain.KeyRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, keysDomain.NewKeyRetrievalError(name, keysDomain.StageFetch, err)
	}

	raw, err := d.store.GetSecret(ctx, d.storeConfig.SecretID(name))
	if err != nil {
		stage := keysDomain.StageFetch
		if apperrors.Is(err, apperrors.ErrNotFound) {
			stage = keysDomain.StageNotFound
		}
		return nil, keysDomain.NewKeyRetrievalError(name, stage, err)
	}

	rec, err := keysDomain.ParseSecretPayload(name, raw, cryptoService.ValidateKey)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("field key fetched",
		slog.String("key_name", string(name)),
		slog.String("key_id", rec.KeyID),
		slog.Int("version", rec.Version),
	)
	return rec, nil
}

func (d *keyDirectory) GetNamesKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return d.GetKey(ctx, keysDomain.NamesKey)
}

func (d *keyDirectory) GetPhoneKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return d.GetKey(ctx, keysDomain.PhoneKey)
}

func (d *keyDirectory) GetEmailKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return d.GetKey(ctx, keysDomain.EmailKey)
}

func (d *keyDirectory) GetAcademicKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return d.GetKey(ctx, keysDomain.AcademicKey)
}

func (d *keyDirectory) GetProfessionalKey(ctx context.Context) (*keysDomain.KeyRecord, error) {
	return d.GetKey(ctx, keysDomain.ProfessionalKey)
}

func (d *keyDirectory) ClearCache() {
	d.cache.Clear()
	d.logger.Info("field key cache cleared")
}

func (d *keyDirectory) CacheStats() keysDomain.CacheStats {
	return d.cache.Stats()
}

func (d *keyDirectory) PreloadKeys(ctx context.Context) keysDomain.PreloadReport {
	loaded := make([]bool, len(d.keyNames))

	var g errgroup.Group
	for i, name := range d.keyNames {
		g.Go(func() error {
			rec, err := d.GetKey(ctx, name)
			if err != nil {
				d.logger.Warn("failed to preload field key",
					slog.String("key_name", string(name)),
					slog.Any("error", err),
				)
				return nil
			}
			rec.Zero()
			loaded[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var report keysDomain.PreloadReport
	for i, name := range d.keyNames {
		if loaded[i] {
			report.Loaded = append(report.Loaded, name)
		} else {
			report.Failed = append(report.Failed, name)
		}
	}

	d.logger.Info("field keys preloaded",
		slog.Int("loaded", len(report.Loaded)),
		slog.Int("failed", len(report.Failed)),
	)
	return report
}
