package secret

import (
	"fmt"
	"strings"
)

// SecretStore provides a pluggable interface for sensitive values such as
// store passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Resolver maps a secret reference of the form "<scheme>:<key>" to a value.
// Known schemes are "env" and "keychain"; a reference without a scheme is
// looked up in the environment.
type Resolver struct {
	stores map[string]SecretStore
}

// NewResolver returns a resolver backed by the process environment and the
// macOS keychain.
func NewResolver() *Resolver {
	return &Resolver{stores: map[string]SecretStore{
		"env":      NewEnvStore(),
		"keychain": NewKeychainStore(),
	}}
}

// WithStore registers (or replaces) the store used for scheme.
func (r *Resolver) WithStore(scheme string, s SecretStore) *Resolver {
	r.stores[scheme] = s
	return r
}

// Resolve returns the secret ref points to. An empty ref resolves to "".
// A ref that resolves to nothing is an error.
func (r *Resolver) Resolve(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}
	store, key, err := r.lookup(ref)
	if err != nil {
		return "", err
	}
	v, err := store.Get(key)
	if err != nil {
		return "", fmt.Errorf("resolve secret %s: %w", ref, err)
	}
	if len(v) == 0 {
		return "", fmt.Errorf("secret %s is not set", ref)
	}
	return string(v), nil
}

// Set stores value under ref.
func (r *Resolver) Set(ref string, value []byte) error {
	store, key, err := r.lookup(ref)
	if err != nil {
		return err
	}
	return store.Set(key, value)
}

// Delete removes the secret ref points to.
func (r *Resolver) Delete(ref string) error {
	store, key, err := r.lookup(ref)
	if err != nil {
		return err
	}
	return store.Delete(key)
}

func (r *Resolver) lookup(ref string) (SecretStore, string, error) {
	ref = strings.TrimSpace(ref)
	scheme, key, ok := strings.Cut(ref, ":")
	if !ok {
		scheme, key = "env", ref
	}
	if key == "" {
		return nil, "", fmt.Errorf("secret reference %q has no key", ref)
	}
	store, found := r.stores[scheme]
	if !found {
		return nil, "", fmt.Errorf("unknown secret scheme %q", scheme)
	}
	return store, key, nil
}
