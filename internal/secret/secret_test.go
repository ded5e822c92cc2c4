package secret

import (
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]string

func (m mapStore) Set(key string, value []byte) error { m[key] = string(value); return nil }
func (m mapStore) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}
func (m mapStore) Delete(key string) error { delete(m, key); return nil }

func TestResolver(t *testing.T) {
	t.Run("Should resolve environment references with and without scheme", func(t *testing.T) {
		t.Setenv("WAGEFLOW_TEST_DB_PASSWORD", "s3cret")
		r := NewResolver()

		v, err := r.Resolve("env:WAGEFLOW_TEST_DB_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)

		v, err = r.Resolve("WAGEFLOW_TEST_DB_PASSWORD")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	})

	t.Run("Should resolve an empty reference to an empty secret", func(t *testing.T) {
		v, err := NewResolver().Resolve("  ")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("Should fail when the referenced secret is unset", func(t *testing.T) {
		_, err := NewResolver().Resolve("env:WAGEFLOW_TEST_SURELY_UNSET")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not set")
	})

	t.Run("Should reject unknown schemes", func(t *testing.T) {
		_, err := NewResolver().Resolve("vault:db")
		require.Error(t, err)
	})

	t.Run("Should use registered stores", func(t *testing.T) {
		r := NewResolver().WithStore("keychain", mapStore{"db": "pw"})
		v, err := r.Resolve("keychain:db")
		require.NoError(t, err)
		assert.Equal(t, "pw", v)
	})
}

func TestResolver_SetDelete(t *testing.T) {
	store := mapStore{}
	r := NewResolver().WithStore("keychain", store)

	require.NoError(t, r.Set("keychain:db", []byte("pw")))
	assert.Equal(t, "pw", store["db"])

	require.NoError(t, r.Delete("keychain:db"))
	assert.NotContains(t, store, "db")

	assert.Error(t, r.Set("keychain:", []byte("pw")))
	assert.Error(t, r.Delete("vault:db"))
}

type fakeSecurity struct {
	calls  [][]string
	output string
	err    error
}

func (f *fakeSecurity) run(name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.output), f.err
}

// exitError runs a shell that exits with code so the error is a real *exec.ExitError.
func exitError(t *testing.T, code string) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit "+code).Run()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	return err
}

func TestKeychainStore(t *testing.T) {
	t.Run("Should read the password of the wageflow service", func(t *testing.T) {
		f := &fakeSecurity{output: "pw\n"}
		k := &KeychainStore{service: DefaultKeychainService, run: f.run}

		v, err := k.Get("db")
		require.NoError(t, err)
		assert.Equal(t, "pw", string(v))
		assert.Equal(t, "security find-generic-password -a db -s wageflow -w", strings.Join(f.calls[0], " "))
	})

	t.Run("Should treat a missing item as unset", func(t *testing.T) {
		f := &fakeSecurity{err: exitError(t, "44")}
		k := &KeychainStore{service: DefaultKeychainService, run: f.run}

		v, err := k.Get("db")
		require.NoError(t, err)
		assert.Nil(t, v)
		assert.NoError(t, k.Delete("db"))
	})

	t.Run("Should surface other failures", func(t *testing.T) {
		f := &fakeSecurity{err: exitError(t, "1")}
		k := &KeychainStore{service: DefaultKeychainService, run: f.run}

		_, err := k.Get("db")
		assert.Error(t, err)
		assert.Error(t, k.Set("db", []byte("pw")))
		assert.Error(t, k.Delete("db"))
	})

	t.Run("Should update in place on set", func(t *testing.T) {
		f := &fakeSecurity{}
		k := &KeychainStore{service: DefaultKeychainService, run: f.run}

		require.NoError(t, k.Set("db", []byte("pw")))
		assert.Equal(t, "security add-generic-password -U -a db -s wageflow -w pw", strings.Join(f.calls[0], " "))
	})
}
