package store

import (
	"context"
	"fmt"

	"github.com/passforge/wallet-sync-server/internal/config"
)

// NewFromConfig creates a Store based on the configured storage type.
//
// For file-based storage the users file is loaded eagerly, so a corrupt or
// unreadable file fails the process at startup rather than mid-batch. For
// postgres storage a connection pool is created and the schema applied.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.GetStorageType() {
	case config.StorageTypePostgres:
		connString, err := cfg.Storage.Database.GetConnectionString()
		if err != nil {
			return nil, err
		}
		pool, err := NewPostgresPool(ctx, connString)
		if err != nil {
			return nil, err
		}
		if err := EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresStore(pool), nil
	case config.StorageTypeMemory:
		return NewMemoryStore(), nil
	case config.StorageTypeFile:
		return NewFileStore(cfg.GetDataDir())
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
