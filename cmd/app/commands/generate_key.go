package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// PayloadEncrypter wraps a secret payload with a KMS key. *secrets.Keeper
// satisfies it.
type PayloadEncrypter interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// GeneratedSecret is the output of RunGenerateKey.
type GeneratedSecret struct {
	KeyName      keysDomain.KeyName `json:"key_name"`
	SecretID     string             `json:"secret_id"`
	SecretString string             `json:"secret_string"`
	KMSWrapped   bool               `json:"kms_wrapped"`
}

// RunGenerateKey creates a fresh 32-byte field key for keyName and prints the
// secret store entry that holds it. When encrypter is non-nil the payload is
// KMS-wrapped and base64 encoded, the layout the keeper-backed store reads.
// If keyID is empty, a default "<name>-YYYY-MM-DD" ID is used.
func RunGenerateKey(
	ctx context.Context,
	encrypter PayloadEncrypter,
	logger *slog.Logger,
	writer io.Writer,
	storeCfg keysDomain.StoreConfig,
	keyName string,
	keyID string,
	version int,
	format string,
) error {
	name := keysDomain.KeyName(keyName)
	if !slices.Contains(keysDomain.KnownKeyNames(), name) {
		return fmt.Errorf("unknown key-name %q (valid options: %v)", keyName, keysDomain.KnownKeyNames())
	}
	if version < 1 {
		return fmt.Errorf("version must be positive, got %d", version)
	}
	if keyID == "" {
		keyID = fmt.Sprintf("%s-%s", name, time.Now().Format("2006-01-02"))
	}

	key, err := cryptoService.GenerateKey()
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(key)

	payload, err := keysDomain.EncodeSecretPayload(key, keyID, version)
	if err != nil {
		return fmt.Errorf("failed to encode secret payload: %w", err)
	}

	out := GeneratedSecret{
		KeyName:      name,
		SecretID:     storeCfg.SecretID(name),
		SecretString: payload,
	}

	if encrypter != nil {
		wrapped, err := encrypter.Encrypt(ctx, []byte(payload))
		if err != nil {
			return fmt.Errorf("failed to wrap secret payload with KMS: %w", err)
		}
		out.SecretString = base64.StdEncoding.EncodeToString(wrapped)
		out.KMSWrapped = true
	}

	logger.Info("field key generated",
		slog.String("key_name", string(name)),
		slog.String("key_id", keyID),
		slog.Int("version", version),
		slog.Bool("kms_wrapped", out.KMSWrapped),
	)

	return writeOutput(writer, format, out, func(w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"# Store this value in the secret store, then clear the key cache\nSECRET_ID=%q\nSECRET_STRING='%s'\n",
			out.SecretID,
			out.SecretString,
		)
		return err
	})
}
