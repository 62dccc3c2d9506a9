package app

import (
	"context"
	"fmt"

	"github.com/ribbonapp/ribbon-core/internal/config"
	"github.com/ribbonapp/ribbon-core/internal/database"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
	storageRepository "github.com/ribbonapp/ribbon-core/internal/storage/repository"
	storageUsecase "github.com/ribbonapp/ribbon-core/internal/storage/usecase"
)

// Classifier returns the key sensitivity map.
func (c *Container) Classifier() *storageDomain.SensitivityMap {
	c.classifierInit.Do(func() {
		c.classifier = storageDomain.DefaultSensitivityMap()
	})
	return c.classifier
}

// KVStore returns the platform key-value store selected by STORAGE_BACKEND.
func (c *Container) KVStore() (storageUsecase.KVStore, error) {
	var err error
	c.kvStoreInit.Do(func() {
		c.kvStore, err = c.initKVStore()
		if err != nil {
			c.setInitError("kvStore", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("kvStore"); storedErr != nil {
		return nil, storedErr
	}
	return c.kvStore, nil
}

// StorageService returns the encrypted storage service. Callers must Initialize it
// before use.
func (c *Container) StorageService() (storageUsecase.StorageService, error) {
	var err error
	c.storageServiceInit.Do(func() {
		c.storageService, err = c.initStorageService()
		if err != nil {
			c.setInitError("storageService", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("storageService"); storedErr != nil {
		return nil, storedErr
	}
	return c.storageService, nil
}

func (c *Container) initKVStore() (storageUsecase.KVStore, error) {
	switch c.config.StorageBackend {
	case config.StorageBackendMemory:
		return storageRepository.NewMemoryKVStore(), nil
	case config.StorageBackendFile:
		store, err := storageRepository.NewFileKVStore(c.config.StorageFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		c.addCloser("file store", store)
		return store, nil
	case config.StorageBackendRedis:
		store, err := storageRepository.OpenRedisKVStore(context.Background(), c.config.RedisAddr, c.config.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		c.addCloser("redis store", store)
		return store, nil
	case config.StorageBackendPostgres, config.StorageBackendMySQL:
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for kv store: %w", err)
		}
		if c.config.StorageBackend == config.StorageBackendMySQL {
			return storageRepository.NewMySQLKVStore(db), nil
		}
		return storageRepository.NewPostgreSQLKVStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", c.config.StorageBackend)
	}
}

func (c *Container) initStorageService() (storageUsecase.StorageService, error) {
	kv, err := c.KVStore()
	if err != nil {
		return nil, err
	}
	codec, err := c.ValueCodec()
	if err != nil {
		return nil, err
	}
	errorLogger, err := c.ErrorLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get error logger for storage service: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for storage service: %w", err)
	}

	var opts []storageUsecase.Option
	if c.config.StorageBackend == config.StorageBackendPostgres || c.config.StorageBackend == config.StorageBackendMySQL {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for storage service: %w", err)
		}
		opts = append(opts, storageUsecase.WithTransactor(database.NewTxManager(db)))
	}

	service := storageUsecase.NewStorageService(kv, codec, c.Classifier(), errorLogger, c.Logger(), opts...)
	return storageUsecase.NewStorageServiceWithMetrics(service, bm), nil
}
