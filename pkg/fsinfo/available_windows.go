//go:build windows

package fsinfo

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func available(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &free, nil, nil); err != nil {
		return 0, fmt.Errorf("GetDiskFreeSpaceEx failed for %s: %w", path, err)
	}
	return free, nil
}
