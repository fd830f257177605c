// Package storage keeps named string entries, the same shape as browser local
// storage: the chat history needs exactly a key -> value map that survives
// restarts.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/comigor/unichat/internal/config"
)

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a persisted key/value map. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := NewSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverRedis:
		rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return rdb, nil
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
