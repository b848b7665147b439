// Package fsinfo answers size and free-space questions about local paths.
package fsinfo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Querier is the filesystem metadata capability used by the orchestrator.
type Querier interface {
	// DirSize sums the sizes of all regular files under root.
	DirSize(ctx context.Context, root string) (uint64, error)
	// Available returns the bytes an unprivileged user may still write on the
	// filesystem holding path. A path that does not exist yet is resolved to
	// its nearest existing ancestor.
	Available(path string) (uint64, error)
}

// OS queries the local operating system.
type OS struct{}

// New returns the OS querier.
func New() *OS {
	return &OS{}
}

func (o *OS) DirSize(ctx context.Context, root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", root, err)
	}
	return total, nil
}

func (o *OS) Available(path string) (uint64, error) {
	existing, err := nearestExisting(path)
	if err != nil {
		return 0, err
	}
	return available(existing)
}

func nearestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat %s: %w", abs, err)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		abs = parent
	}
}

// Exists reports whether path exists, distinguishing "absent" from stat failures.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// IsEmptyDir reports whether path is an existing directory with no entries.
// It returns an error when path is missing or not a directory.
func IsEmptyDir(path string) (bool, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, err
	}
	if !info.IsDir() {
		return false, 0, fmt.Errorf("%s is not a directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return false, 0, err
	}
	return len(entries) == 0, len(entries), nil
}
