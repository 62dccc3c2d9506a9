package app

import (
	"context"
	"errors"
	"fmt"

	cryptoDomain "github.com/ribbonapp/ribbon-core/internal/crypto/domain"
	cryptoService "github.com/ribbonapp/ribbon-core/internal/crypto/service"
	cryptoUsecase "github.com/ribbonapp/ribbon-core/internal/crypto/usecase"
)

// ErrSecureStoreRequired is returned in strict mode when no KMS key URI is configured.
var ErrSecureStoreRequired = errors.New("strict mode requires KMS_KEY_URI for the secure store")

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// SecureStore returns the store holding the per-install key.
func (c *Container) SecureStore() (cryptoService.SecureStore, error) {
	var err error
	c.secureStoreInit.Do(func() {
		c.secureStore, err = c.initSecureStore()
		if err != nil {
			c.setInitError("secureStore", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("secureStore"); storedErr != nil {
		return nil, storedErr
	}
	return c.secureStore, nil
}

// KeyManager returns the key manager service.
func (c *Container) KeyManager() (cryptoService.KeyManager, error) {
	var err error
	c.keyManagerInit.Do(func() {
		var store cryptoService.SecureStore
		store, err = c.SecureStore()
		if err != nil {
			err = fmt.Errorf("failed to get secure store for key manager: %w", err)
			c.setInitError("keyManager", err)
			return
		}
		c.keyManager = cryptoService.NewKeyManager(store)
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("keyManager"); storedErr != nil {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// CipherManager returns the cipher factory.
func (c *Container) CipherManager() cryptoService.CipherManager {
	c.cipherManagerInit.Do(func() {
		c.cipherManager = cryptoService.NewCipherManager()
	})
	return c.cipherManager
}

// ValueCodec returns the encrypted value codec.
func (c *Container) ValueCodec() (cryptoUsecase.ValueCodec, error) {
	var err error
	c.valueCodecInit.Do(func() {
		c.valueCodec, err = c.initValueCodec()
		if err != nil {
			c.setInitError("valueCodec", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("valueCodec"); storedErr != nil {
		return nil, storedErr
	}
	return c.valueCodec, nil
}

// initSecureStore seals the key with the configured KMS keeper. Without a key URI
// the key lives in memory only, which strict mode refuses.
func (c *Container) initSecureStore() (cryptoService.SecureStore, error) {
	if c.config.KMSKeyURI == "" {
		if c.config.StrictMode {
			return nil, ErrSecureStoreRequired
		}
		c.Logger().Warn("KMS_KEY_URI not set, using in-memory secure store; encrypted values will not survive a restart")
		return cryptoService.NewMemorySecureStore(), nil
	}

	store, err := cryptoService.OpenKeeperSecureStore(
		context.Background(),
		c.KMSService(),
		c.config.KMSKeyURI,
		c.config.SecureStorePath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open secure store: %w", err)
	}
	c.addCloser("secure store", store)
	return store, nil
}

func (c *Container) initValueCodec() (cryptoUsecase.ValueCodec, error) {
	version, err := cryptoDomain.ParseVersion(c.config.EncryptionVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption version: %w", err)
	}
	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, err
	}
	errorLogger, err := c.ErrorLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get error logger for value codec: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for value codec: %w", err)
	}

	codec, err := cryptoUsecase.NewValueCodec(
		c.Classifier(),
		keyManager,
		c.CipherManager(),
		errorLogger,
		cryptoUsecase.CodecOptions{Version: version, Strict: c.config.StrictMode},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create value codec: %w", err)
	}
	return cryptoUsecase.NewValueCodecWithMetrics(codec, bm), nil
}
