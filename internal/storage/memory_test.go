package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

func TestMemoryStore_CRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	if !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "symbol:7203", "7203.T"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := store.Get(ctx, "symbol:7203")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "7203.T" {
		t.Errorf("expected 7203.T, got %s", value)
	}

	if err := store.Delete(ctx, "symbol:7203"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "symbol:7203"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_DeleteMissing(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("Delete of missing key should not error: %v", err)
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set(ctx, "key", "value")
			_, _ = store.Get(ctx, "key")
		}()
	}
	wg.Wait()

	value, err := store.Get(ctx, "key")
	if err != nil || value != "value" {
		t.Fatalf("expected value after concurrent writes, got %q err %v", value, err)
	}
}

func TestCredentialStore(t *testing.T) {
	store := NewCredentialStore(NewMemoryStore())
	ctx := context.Background()

	_, err := store.GetKey(ctx, "alphavantage")
	if !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.SetKey(ctx, "AlphaVantage", "demo-key"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}

	// Provider lookup is case-insensitive.
	key, err := store.GetKey(ctx, "alphavantage")
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if key != "demo-key" {
		t.Errorf("expected demo-key, got %s", key)
	}

	if err := store.SetKey(ctx, "twelvedata", "  "); err == nil {
		t.Error("expected error for blank API key")
	}

	if err := store.ClearKey(ctx, "alphavantage"); err != nil {
		t.Fatalf("ClearKey failed: %v", err)
	}
	if _, err := store.GetKey(ctx, "alphavantage"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after clear, got %v", err)
	}
}

func TestCredentialStore_NoCacheCollision(t *testing.T) {
	kv := NewMemoryStore()
	store := NewCredentialStore(kv)
	ctx := context.Background()

	if err := kv.Set(ctx, "symbol:alphavantage", "cached"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := store.GetKey(ctx, "alphavantage"); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Fatal("credential lookup must not read symbol cache entries")
	}
}

func TestNewKVStore(t *testing.T) {
	logger := testLogger()

	store, err := NewKVStore(logger, defaultStorageConfig("memory", ""))
	if err != nil {
		t.Fatalf("memory backend failed: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected *MemoryStore, got %T", store)
	}

	if _, err := NewKVStore(logger, defaultStorageConfig("cassandra", "")); err == nil {
		t.Error("expected error for unknown backend")
	}
}
