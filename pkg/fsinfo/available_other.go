//go:build !unix && !windows

package fsinfo

import (
	"fmt"
	"runtime"
)

func available(path string) (uint64, error) {
	return 0, fmt.Errorf("free space query not supported on %s", runtime.GOOS)
}
