package domain

import (
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	appValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// StoreConfig locates the remote secret store and authenticates against it.
type StoreConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Endpoint        string
	SecretPrefix    string
}

// Merge returns a copy of c with empty fields filled from fallback.
func (c StoreConfig) Merge(fallback StoreConfig) StoreConfig {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return StoreConfig{
		Region:          pick(c.Region, fallback.Region),
		AccessKeyID:     pick(c.AccessKeyID, fallback.AccessKeyID),
		SecretAccessKey: pick(c.SecretAccessKey, fallback.SecretAccessKey),
		SessionToken:    pick(c.SessionToken, fallback.SessionToken),
		Endpoint:        pick(c.Endpoint, fallback.Endpoint),
		SecretPrefix:    pick(c.SecretPrefix, fallback.SecretPrefix),
	}
}

// Validate requires a region and a complete credential pair. An endpoint
// override, when present, must be a URL.
func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Region, validation.Required, appValidation.NotBlank, appValidation.NoWhitespace),
		validation.Field(&c.AccessKeyID, validation.Required, appValidation.NoWhitespace),
		validation.Field(&c.SecretAccessKey, validation.Required),
		validation.Field(&c.Endpoint, is.URL),
		validation.Field(&c.SecretPrefix, appValidation.NoWhitespace),
	)
}

// SecretID maps a key-name to the identifier used in the secret store.
func (c StoreConfig) SecretID(name KeyName) string {
	if c.SecretPrefix == "" {
		return string(name)
	}
	return c.SecretPrefix + string(name)
}

// ValidateStoreConfig checks that explicit, or failing that fallback, supplies
// a usable region and credentials. It never touches the network.
func ValidateStoreConfig(explicit *StoreConfig, fallback StoreConfig) error {
	cfg := fallback
	if explicit != nil {
		cfg = explicit.Merge(fallback)
	}
	if err := cfg.Validate(); err != nil {
		return NewKeyRetrievalError("", StageConfig, err)
	}
	return nil
}
