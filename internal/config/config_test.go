package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8081, cfg.ServerPort)
				assert.Equal(t, StoreBackendSQL, cfg.StoreBackend)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "aes-256-gcm", cfg.CipherAlgorithm)
				assert.Equal(t, SecretStoreAWS, cfg.SecretStore)
				assert.Equal(t, "fieldcrypt/", cfg.SecretPrefix)
				assert.Equal(t, 5*time.Minute, cfg.KeyCacheTTL)
				assert.Equal(t, 100, cfg.KeyCacheMaxSize)
				assert.Equal(t, 5*time.Second, cfg.KeyFetchTimeout)
				assert.True(t, cfg.KeyPreloadOnStart)
				assert.Equal(t, "fieldcrypt", cfg.MetricsNamespace)
				assert.Equal(t, 8082, cfg.MetricsPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load key directory configuration",
			envVars: map[string]string{
				"KEY_CACHE_TTL_SECONDS":     "60",
				"KEY_CACHE_MAX_SIZE":        "3",
				"KEY_FETCH_TIMEOUT_SECONDS": "2",
				"KEY_FETCH_RATE_LIMIT":      "2.5",
				"KEY_PRELOAD_ON_START":      "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Minute, cfg.KeyCacheTTL)
				assert.Equal(t, 3, cfg.KeyCacheMaxSize)
				assert.Equal(t, 2*time.Second, cfg.KeyFetchTimeout)
				assert.Equal(t, 2.5, cfg.KeyFetchRateLimit)
				assert.False(t, cfg.KeyPreloadOnStart)
			},
		},
		{
			name: "load secret store credentials",
			envVars: map[string]string{
				"AWS_REGION":            "us-east-1",
				"AWS_ACCESS_KEY_ID":     "AKIAEXAMPLE",
				"AWS_SECRET_ACCESS_KEY": "secret",
				"SECRET_STORE_ENDPOINT": "http://localhost:4566",
				"SECRET_PREFIX":         "prod/",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, keysDomain.StoreConfig{
					Region:          "us-east-1",
					AccessKeyID:     "AKIAEXAMPLE",
					SecretAccessKey: "secret",
					Endpoint:        "http://localhost:4566",
					SecretPrefix:    "prod/",
				}, cfg.StoreConfig())
				assert.NoError(t, cfg.StoreConfig().Validate())
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "debug", cfg.GetGinMode())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			// Load configuration
			cfg := Load()

			// Validate
			tt.validate(t, cfg)
		})
	}
}
