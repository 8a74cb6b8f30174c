package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

const credentialPrefix = "credential:"

// CredentialStore namespaces provider API keys inside a KVStore so they
// never collide with the symbol-resolution cache.
type CredentialStore struct {
	kv interfaces.KVStore
}

// NewCredentialStore wraps a KVStore as a credential store.
func NewCredentialStore(kv interfaces.KVStore) *CredentialStore {
	return &CredentialStore{kv: kv}
}

func credentialKey(provider string) string {
	return credentialPrefix + strings.ToLower(strings.TrimSpace(provider))
}

func (s *CredentialStore) GetKey(ctx context.Context, provider string) (string, error) {
	return s.kv.Get(ctx, credentialKey(provider))
}

func (s *CredentialStore) SetKey(ctx context.Context, provider, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty API key for provider %s", provider)
	}
	return s.kv.Set(ctx, credentialKey(provider), key)
}

func (s *CredentialStore) ClearKey(ctx context.Context, provider string) error {
	return s.kv.Delete(ctx, credentialKey(provider))
}

var _ interfaces.CredentialStore = (*CredentialStore)(nil)
