// Package container provisions, mounts and unmounts encrypted file-backed
// volumes through an external encryption tool.
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// Manager is the container lifecycle capability.
type Manager interface {
	Create(ctx context.Context, path string, sizeBytes uint64, creds Credentials) error
	Mount(ctx context.Context, path, mountPoint string, creds Credentials) error
	Unmount(ctx context.Context, mountPoint string) error
}

// Credentials unlock a container: a password, keyfiles, or both layered.
type Credentials struct {
	// Password is sealed in an encrypted enclave and only decrypted while a
	// command is being fed.
	Password *memguard.Enclave
	Keyfiles []string
}

// ErrNoCredentials is returned when neither a password nor a keyfile is set.
var ErrNoCredentials = errors.New("container credentials require a password, a keyfile, or both")

// NewPassword seals password into an enclave. The input slice is wiped.
func NewPassword(password []byte) *memguard.Enclave {
	if len(password) == 0 {
		return nil
	}
	return memguard.NewEnclave(password)
}

// Validate checks that at least one credential is present.
func (c Credentials) Validate() error {
	if c.Password == nil && len(c.Keyfiles) == 0 {
		return ErrNoCredentials
	}
	for _, k := range c.Keyfiles {
		if k == "" {
			return fmt.Errorf("empty keyfile path")
		}
	}
	return nil
}

// HasPassword reports whether a password is set, for logging.
func (c Credentials) HasPassword() bool {
	return c.Password != nil
}
