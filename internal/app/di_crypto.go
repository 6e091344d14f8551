package app

import (
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// AEADManager returns the AEAD manager service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// CipherEngine returns the cipher engine configured with CIPHER_ALGORITHM.
func (c *Container) CipherEngine() (cryptoService.CipherEngine, error) {
	var err error
	c.cipherEngineInit.Do(func() {
		c.cipherEngine, err = c.initCipherEngine()
		if err != nil {
			c.initErrors["cipherEngine"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cipherEngine"]; exists {
		return nil, storedErr
	}
	return c.cipherEngine, nil
}

// DigestEngine returns the digest engine.
func (c *Container) DigestEngine() cryptoService.DigestEngine {
	c.digestEngineInit.Do(func() {
		c.digestEngine = cryptoService.NewDigestEngine()
	})
	return c.digestEngine
}

func (c *Container) initCipherEngine() (cryptoService.CipherEngine, error) {
	alg, err := cryptoDomain.ParseAlgorithm(c.config.CipherAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid cipher algorithm: %w", err)
	}
	return cryptoService.NewCipherEngine(c.AEADManager(), alg), nil
}
