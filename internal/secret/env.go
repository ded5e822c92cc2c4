package secret

import (
	"fmt"
	"os"
)

// EnvStore reads secrets from environment variables named by the key.
type EnvStore struct{}

// NewEnvStore creates a new EnvStore.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Set exports key for the rest of the process.
func (EnvStore) Set(key string, value []byte) error {
	if err := os.Setenv(key, string(value)); err != nil {
		return fmt.Errorf("env set: %w", err)
	}
	return nil
}

// Get returns the value of the environment variable key.
func (EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// Delete unsets key.
func (EnvStore) Delete(key string) error {
	return os.Unsetenv(key)
}
