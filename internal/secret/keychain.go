package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultKeychainService groups wageflow entries in the login keychain.
const DefaultKeychainService = "wageflow"

// errItemNotFound is the exit status of `security` for a missing item.
const errItemNotFound = 44

// runFunc executes a command and returns its stdout.
type runFunc func(name string, args ...string) ([]byte, error)

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// KeychainStore keeps secrets as generic passwords in the macOS keychain,
// driven through the `security` CLI. The key is the account name.
type KeychainStore struct {
	service string
	run     runFunc
}

// NewKeychainStore returns a store for the wageflow keychain service.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: DefaultKeychainService, run: runCommand}
}

// Set adds or updates the password stored under key.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("security", "add-generic-password", "-U",
		"-a", key, "-s", k.service, "-w", string(value))
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, commandError(err))
	}
	return nil
}

// Get returns the password stored under key, or nil when there is none.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("security", "find-generic-password",
		"-a", key, "-s", k.service, "-w")
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, commandError(err))
	}
	return []byte(strings.TrimRight(string(out), "\r\n")), nil
}

// Delete removes the password stored under key. Deleting a missing key is not an error.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("security", "delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && !notFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, commandError(err))
	}
	return nil
}

func notFound(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == errItemNotFound
}

// commandError folds the captured stderr of a failed command into err.
func commandError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return err
}
