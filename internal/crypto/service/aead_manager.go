package service

import (
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// aeadConstructors maps each envelope "alg" value to its cipher.
var aeadConstructors = map[cryptoDomain.Algorithm]func(key []byte) (AEAD, error){
	cryptoDomain.AESGCM: func(key []byte) (AEAD, error) {
		c, err := NewAESGCM(key)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
	cryptoDomain.ChaCha20: func(key []byte) (AEAD, error) {
		c, err := NewChaCha20Poly1305(key)
		if err != nil {
			return nil, err
		}
		return c, nil
	},
}

// AEADManagerService implements AEADManager.
type AEADManagerService struct{}

func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher keys the AEAD named by alg. alg may come from a stored
// envelope, so unknown values are reported by name.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	newAEAD, ok := aeadConstructors[alg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", cryptoDomain.ErrUnsupportedAlgorithm, alg)
	}
	return newAEAD(key)
}
