package storage

import (
	"fmt"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/storage/badger"
	"github.com/bobmcallan/entrycheck/internal/storage/surrealdb"
)

// NewKVStore creates the KV backend selected by the storage config.
func NewKVStore(logger *common.Logger, cfg common.StorageConfig) (interfaces.KVStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "badger":
		return badger.NewStore(logger, cfg.Path)
	case "surreal":
		return surrealdb.NewStore(logger, cfg.Surreal)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
