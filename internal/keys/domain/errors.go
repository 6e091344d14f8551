package domain

import (
	"fmt"

	"github.com/allisson/fieldcrypt/internal/errors"
)

// ErrKeyRetrieval is the single error kind surfaced by the key directory.
var ErrKeyRetrieval = errors.Wrap(errors.ErrUnavailable, "key retrieval failed")

// Stages of the retrieval pipeline, recorded on KeyRetrievalError.
const (
	StageConfig   = "config"
	StageFetch    = "fetch"
	StageNotFound = "not_found"
	StageParse    = "parse"
	StageMissing  = "missing_key"
	StageDecode   = "decode"
	StageValidate = "validate"
)

// KeyRetrievalError reports a failure to obtain a valid key. The underlying
// cause is preserved for diagnostics and reachable through errors.Unwrap.
type KeyRetrievalError struct {
	KeyName KeyName
	Stage   string
	Err     error
}

// NewKeyRetrievalError builds a KeyRetrievalError.
func NewKeyRetrievalError(name KeyName, stage string, err error) *KeyRetrievalError {
	return &KeyRetrievalError{KeyName: name, Stage: stage, Err: err}
}

func (e *KeyRetrievalError) Error() string {
	if e.KeyName == "" {
		return fmt.Sprintf("key retrieval failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("key retrieval failed for %q at %s: %v", e.KeyName, e.Stage, e.Err)
}

func (e *KeyRetrievalError) Unwrap() error {
	return e.Err
}

// Is makes every KeyRetrievalError match ErrKeyRetrieval.
func (e *KeyRetrievalError) Is(target error) bool {
	return target == ErrKeyRetrieval
}
