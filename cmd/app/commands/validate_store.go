package commands

import (
	"fmt"
	"io"
	"log/slog"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// StoreValidation is the output of RunValidateStore. Credentials are never echoed.
type StoreValidation struct {
	Valid        bool   `json:"valid"`
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint,omitempty"`
	SecretPrefix string `json:"secret_prefix"`
	Error        string `json:"error,omitempty"`
}

// RunValidateStore checks the secret store configuration without contacting
// the store. Flags given on the command line form the explicit configuration;
// the environment is the fallback.
func RunValidateStore(
	logger *slog.Logger,
	writer io.Writer,
	explicit *keysDomain.StoreConfig,
	fallback keysDomain.StoreConfig,
	format string,
) error {
	effective := fallback
	if explicit != nil {
		effective = explicit.Merge(fallback)
	}

	out := StoreValidation{
		Valid:        true,
		Region:       effective.Region,
		Endpoint:     effective.Endpoint,
		SecretPrefix: effective.SecretPrefix,
	}

	validationErr := keysDomain.ValidateStoreConfig(explicit, fallback)
	if validationErr != nil {
		out.Valid = false
		out.Error = validationErr.Error()
		logger.Warn("secret store configuration is invalid", slog.Any("error", validationErr))
	}

	if err := writeOutput(writer, format, out, func(w io.Writer) error {
		if out.Valid {
			_, err := fmt.Fprintf(w, "secret store configuration is valid (region %s)\n", out.Region)
			return err
		}
		_, err := fmt.Fprintf(w, "secret store configuration is invalid: %s\n", out.Error)
		return err
	}); err != nil {
		return err
	}

	return validationErr
}
