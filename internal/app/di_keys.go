package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/fieldcrypt/internal/config"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
	keysService "github.com/allisson/fieldcrypt/internal/keys/service"
	keysUsecase "github.com/allisson/fieldcrypt/internal/keys/usecase"
)

// SecretStore returns the secret store that holds field keys.
func (c *Container) SecretStore() (keysService.SecretStore, error) {
	var err error
	c.secretStoreInit.Do(func() {
		c.secretStore, err = c.initSecretStore()
		if err != nil {
			c.initErrors["secretStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secretStore"]; exists {
		return nil, storedErr
	}
	return c.secretStore, nil
}

// KeyDirectory returns the key directory, decorated with metrics.
func (c *Container) KeyDirectory() (keysUsecase.KeyDirectory, error) {
	var err error
	c.keyDirectoryInit.Do(func() {
		c.keyDirectory, err = c.initKeyDirectory()
		if err != nil {
			c.initErrors["keyDirectory"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyDirectory"]; exists {
		return nil, storedErr
	}
	return c.keyDirectory, nil
}

func (c *Container) initSecretStore() (keysService.SecretStore, error) {
	ctx := context.Background()
	storeCfg := c.config.StoreConfig()

	var store keysService.SecretStore
	switch c.config.SecretStore {
	case config.SecretStoreAWS:
		if err := keysDomain.ValidateStoreConfig(nil, storeCfg); err != nil {
			return nil, err
		}
		awsStore, err := keysService.OpenAWSSecretsManagerStore(ctx, storeCfg)
		if err != nil {
			return nil, err
		}
		store = awsStore
	case config.SecretStoreMemory:
		memStore, err := c.newEphemeralSecretStore(storeCfg)
		if err != nil {
			return nil, err
		}
		store = memStore
	default:
		return nil, fmt.Errorf("unsupported secret store: %s", c.config.SecretStore)
	}

	if c.config.SecretStoreKMSKeyURI == "" {
		return store, nil
	}

	keeper, err := keysService.OpenKeeper(ctx, c.config.SecretStoreKMSKeyURI)
	if err != nil {
		return nil, err
	}
	c.keeper = keeper
	return keysService.NewKeeperStore(store, keeper), nil
}

// newEphemeralSecretStore seeds an in-memory store with a random key per
// key-name. Records written with these keys are unreadable after restart.
func (c *Container) newEphemeralSecretStore(storeCfg keysDomain.StoreConfig) (*keysService.MemoryStore, error) {
	store := keysService.NewMemoryStore(nil)
	for _, name := range keysDomain.KnownKeyNames() {
		key, err := cryptoService.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key for %s: %w", name, err)
		}
		payload, err := keysDomain.EncodeSecretPayload(key, "ephemeral-"+string(name), 1)
		if err != nil {
			return nil, err
		}
		store.Put(storeCfg.SecretID(name), payload)
	}

	c.Logger().Warn("using ephemeral in-memory secret store",
		slog.Int("key_count", len(keysDomain.KnownKeyNames())),
	)
	return store, nil
}

func (c *Container) initKeyDirectory() (keysUsecase.KeyDirectory, error) {
	store, err := c.SecretStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get secret store for key directory: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for key directory: %w", err)
	}

	directory := keysUsecase.NewKeyDirectory(store, keysUsecase.Options{
		StoreConfig:    c.config.StoreConfig(),
		CacheTTL:       c.config.KeyCacheTTL,
		CacheMaxSize:   c.config.KeyCacheMaxSize,
		FetchTimeout:   c.config.KeyFetchTimeout,
		FetchRateLimit: c.config.KeyFetchRateLimit,
		FetchBurst:     c.config.KeyFetchBurst,
	}, c.Logger())

	return keysUsecase.NewKeyDirectoryWithMetrics(directory, businessMetrics), nil
}
