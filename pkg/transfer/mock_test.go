package transfer

import (
	"context"
	"fmt"
	"os"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/copier"
)

// mockCopier is a mock implementation of copier.Copier for testing
type mockCopier struct {
	copyFunc func(ctx context.Context, src, dst string) error
	calls    int
	filter   copier.Filter
}

func (m *mockCopier) Copy(ctx context.Context, src, dst string, filter copier.Filter) error {
	m.calls++
	m.filter = filter
	if m.copyFunc != nil {
		return m.copyFunc(ctx, src, dst)
	}
	return fmt.Errorf("Copy not implemented")
}

// mockContainers is a mock implementation of container.Manager for testing.
// By default Create writes an empty backing file and Mount/Unmount succeed;
// the mount point itself stands in for the mounted volume.
type mockContainers struct {
	createFunc  func(ctx context.Context, path string, size uint64, creds container.Credentials) error
	mountFunc   func(ctx context.Context, path, mountPoint string, creds container.Credentials) error
	unmountFunc func(ctx context.Context, mountPoint string) error

	createdSize uint64
	mounts      []string
	unmounts    []string
}

func (m *mockContainers) Create(ctx context.Context, path string, size uint64, creds container.Credentials) error {
	m.createdSize = size
	if m.createFunc != nil {
		return m.createFunc(ctx, path, size, creds)
	}
	return os.WriteFile(path, nil, 0o600)
}

func (m *mockContainers) Mount(ctx context.Context, path, mountPoint string, creds container.Credentials) error {
	m.mounts = append(m.mounts, mountPoint)
	if m.mountFunc != nil {
		return m.mountFunc(ctx, path, mountPoint, creds)
	}
	return nil
}

func (m *mockContainers) Unmount(ctx context.Context, mountPoint string) error {
	m.unmounts = append(m.unmounts, mountPoint)
	if m.unmountFunc != nil {
		return m.unmountFunc(ctx, mountPoint)
	}
	return nil
}

// mockFS is a mock implementation of fsinfo.Querier for testing
type mockFS struct {
	dirSizeFunc   func(ctx context.Context, root string) (uint64, error)
	availableFunc func(path string) (uint64, error)
	availableAt   []string
}

func (m *mockFS) DirSize(ctx context.Context, root string) (uint64, error) {
	if m.dirSizeFunc != nil {
		return m.dirSizeFunc(ctx, root)
	}
	return 1024, nil
}

func (m *mockFS) Available(path string) (uint64, error) {
	m.availableAt = append(m.availableAt, path)
	if m.availableFunc != nil {
		return m.availableFunc(path)
	}
	return 1 << 40, nil
}
