package copier

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Native copies with the Go standard library. Regular files are written with
// fsync and keep their mode and modification time; directories are recreated;
// symlinks are recreated as symlinks. Other file types are skipped.
type Native struct {
	// Flatten writes every regular file directly into the destination root
	// by base name. Two files with the same name are an error.
	Flatten bool
}

// NewNative creates a native copier.
func NewNative(flatten bool) *Native {
	return &Native{Flatten: flatten}
}

func (n *Native) Copy(ctx context.Context, sourceRoot, destinationRoot string, filter Filter) error {
	written := make(map[string]string)

	err := filepath.WalkDir(sourceRoot, func(src string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceRoot, src)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if skip(filter, filepath.ToSlash(rel), d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := filepath.Join(destinationRoot, rel)
		if n.Flatten {
			if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			dst = filepath.Join(destinationRoot, d.Name())
			if prev, ok := written[d.Name()]; ok {
				return fmt.Errorf("flatten: %s and %s share the name %s", prev, rel, d.Name())
			}
			written[d.Name()] = rel
		}

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(dst, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(src)
			if err != nil {
				return err
			}
			return os.Symlink(target, dst)
		case d.Type().IsRegular():
			return copyWithRetry(ctx, src, dst)
		default:
			return nil
		}
	})
	if err != nil {
		return fmt.Errorf("copy %s -> %s: %w", sourceRoot, destinationRoot, err)
	}
	return nil
}

// copyWithRetry copies one file, aborting if the source changes mid-copy.
func copyWithRetry(ctx context.Context, src, dst string) error {
	orig, err := os.Stat(src)
	if err != nil {
		return err
	}

	err = retry(ctx, "copy "+src, func() error {
		now, err := os.Stat(src)
		if err != nil {
			return err
		}

		if sourceChanged(orig, now) {
			return fmt.Errorf("source changed during copy: %s", src)
		}

		return copyOnce(src, dst, orig.Mode().Perm())
	})
	if err != nil {
		return err
	}

	return os.Chtimes(dst, orig.ModTime(), orig.ModTime())
}

func sourceChanged(orig, now os.FileInfo) bool {
	if now.ModTime().After(orig.ModTime()) {
		return true
	}
	return now.Size() != orig.Size()
}

func copyOnce(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}
