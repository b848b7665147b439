//go:build unix

package fsinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func available(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs failed for %s: %w", path, err)
	}

	// Bavail is the free block count for an unprivileged user.
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
