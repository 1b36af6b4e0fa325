package keys

import (
	"context"
	"errors"
	"fmt"

	"github.com/unidatahq/udc/runtime/assistant"
)

// Resolver resolves provider credentials for assistant turns: an explicit
// request key wins, then a stored key referenced by id, then the configured
// default for the provider.
type Resolver struct {
	store    *Store
	defaults map[assistant.Provider]string
}

// NewResolver builds a Resolver. defaults maps providers to the keys loaded
// from configuration or the environment; entries may be empty.
func NewResolver(store *Store, defaults map[assistant.Provider]string) *Resolver {
	return &Resolver{store: store, defaults: defaults}
}

// Resolve implements assistant.CredentialResolver.
func (r *Resolver) Resolve(ctx context.Context, provider assistant.Provider, explicitKey, storedKeyID string) (string, error) {
	if explicitKey != "" {
		return explicitKey, nil
	}
	if storedKeyID != "" {
		if r.store == nil {
			return "", fmt.Errorf("%w: key storage disabled", assistant.ErrNotConfigured)
		}
		keyProvider, secret, err := r.store.providerSecret(ctx, storedKeyID)
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: api key %s", assistant.ErrNotConfigured, storedKeyID)
		}
		if err != nil {
			return "", err
		}
		if keyProvider != string(provider) {
			return "", fmt.Errorf("%w: api key %s belongs to provider %s", assistant.ErrNotConfigured, storedKeyID, keyProvider)
		}
		return secret, nil
	}
	if key := r.defaults[provider]; key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: provider %s", assistant.ErrNotConfigured, provider)
}
