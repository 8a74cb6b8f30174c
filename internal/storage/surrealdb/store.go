// Package surrealdb provides a SurrealDB-backed KVStore, enabled with
// storage.backend = "surreal" for deployments that already run SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

const kvTable = "system_kv"

// Store implements interfaces.KVStore over a SurrealDB table.
type Store struct {
	db     *surrealdb.DB
	logger *common.Logger
}

type kvRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewStore connects to SurrealDB and prepares the KV table.
func NewStore(logger *common.Logger, cfg common.SurrealConfig) (*Store, error) {
	ctx := context.Background()

	db, err := surrealdb.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// SurrealDB v3 errors on querying non-existent tables.
	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", kvTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		return nil, fmt.Errorf("failed to define table %s: %w", kvTable, err)
	}

	logger.Debug().Str("address", cfg.Address).Msg("SurrealDB store connected")

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	record, err := surrealdb.Select[kvRecord](ctx, s.db, surrealmodels.NewRecordID(kvTable, key))
	if err != nil || record == nil || record.Key == "" {
		return "", interfaces.ErrKeyNotFound
	}
	return record.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	record := kvRecord{Key: key, Value: value}

	sql := fmt.Sprintf("UPSERT type::record('%s', $id) CONTENT $kv", kvTable)
	vars := map[string]any{"id": key, "kv": record}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]kvRecord](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to set key '%s' after retries: %w", key, err)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := surrealdb.Delete[kvRecord](ctx, s.db, surrealmodels.NewRecordID(kvTable, key)); err != nil {
		return fmt.Errorf("failed to delete key '%s': %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close(context.Background())
	}
	return nil
}

var _ interfaces.KVStore = (*Store)(nil)
