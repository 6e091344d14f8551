package app

import (
	"context"
	"fmt"

	"github.com/allisson/fieldcrypt/internal/config"
	fieldsDomain "github.com/allisson/fieldcrypt/internal/fields/domain"
	fieldsRepository "github.com/allisson/fieldcrypt/internal/fields/repository"
	fieldsUsecase "github.com/allisson/fieldcrypt/internal/fields/usecase"
)

// Registry returns the field registry.
func (c *Container) Registry() *fieldsDomain.Registry {
	c.registryInit.Do(func() {
		c.registry = fieldsDomain.DefaultRegistry()
	})
	return c.registry
}

// Transformer returns the record transformer.
func (c *Container) Transformer() (*fieldsUsecase.Transformer, error) {
	var err error
	c.transformerInit.Do(func() {
		c.transformer, err = c.initTransformer()
		if err != nil {
			c.initErrors["transformer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transformer"]; exists {
		return nil, storedErr
	}
	return c.transformer, nil
}

// BackendStore returns the raw record backend selected by STORE_BACKEND. It
// only ever sees storage columns.
func (c *Container) BackendStore() (fieldsUsecase.Store, error) {
	var err error
	c.backendStoreInit.Do(func() {
		c.backendStore, err = c.initBackendStore()
		if err != nil {
			c.initErrors["backendStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["backendStore"]; exists {
		return nil, storedErr
	}
	return c.backendStore, nil
}

// RecordStore returns the store application code talks to: the backend
// wrapped by the interceptor and metrics.
func (c *Container) RecordStore() (fieldsUsecase.Store, error) {
	var err error
	c.recordStoreInit.Do(func() {
		c.recordStore, err = c.initRecordStore()
		if err != nil {
			c.initErrors["recordStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordStore"]; exists {
		return nil, storedErr
	}
	return c.recordStore, nil
}

func (c *Container) initTransformer() (*fieldsUsecase.Transformer, error) {
	keyDirectory, err := c.KeyDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get key directory for transformer: %w", err)
	}
	cipherEngine, err := c.CipherEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher engine for transformer: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for transformer: %w", err)
	}

	return fieldsUsecase.NewTransformer(
		c.Registry(),
		keyDirectory,
		cipherEngine,
		c.DigestEngine(),
		businessMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initBackendStore() (fieldsUsecase.Store, error) {
	switch c.config.StoreBackend {
	case config.StoreBackendSQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for record store: %w", err)
		}
		return fieldsRepository.NewSQLStore(db, c.config.DBDriver, c.Registry())
	case config.StoreBackendMongo:
		client, err := c.MongoClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get mongo client for record store: %w", err)
		}
		store := fieldsRepository.NewMongoStore(client.Database(c.config.MongoDatabase), c.Registry())
		if err := store.EnsureIndexes(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreBackendMemory:
		return fieldsRepository.NewMemoryStore(c.Registry()), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", c.config.StoreBackend)
	}
}

func (c *Container) initRecordStore() (fieldsUsecase.Store, error) {
	backend, err := c.BackendStore()
	if err != nil {
		return nil, err
	}
	transformer, err := c.Transformer()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for record store: %w", err)
	}

	interceptor := fieldsUsecase.NewInterceptor(backend, transformer)
	return fieldsUsecase.NewStoreWithMetrics(interceptor, businessMetrics), nil
}
