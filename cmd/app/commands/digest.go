package commands

import (
	"fmt"
	"io"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// DigestOutput is the output of RunDigest.
type DigestOutput struct {
	Digest string `json:"digest"`
}

// RunDigest prints the deterministic digest of value, the same value stored in
// a sensitive field's digest column. Operators use it to look rows up by hand.
func RunDigest(digestEngine cryptoService.DigestEngine, writer io.Writer, value, format string) error {
	digest, err := digestEngine.DeterministicHash(value)
	if err != nil {
		return err
	}

	return writeOutput(writer, format, DigestOutput{Digest: digest}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, digest)
		return err
	})
}
