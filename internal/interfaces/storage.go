package interfaces

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KVStore.Get for absent keys, whatever the
// backing store.
var ErrKeyNotFound = errors.New("key not found")

// KVStore is the minimal key-value contract shared by the symbol-resolution
// cache and the credential store. Writes are idempotent; last writer wins.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// CredentialStore holds provider API keys keyed by provider name.
type CredentialStore interface {
	GetKey(ctx context.Context, provider string) (string, error)
	SetKey(ctx context.Context, provider, token string) error
	ClearKey(ctx context.Context, provider string) error
}
