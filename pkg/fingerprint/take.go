package fingerprint

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/checksum"
)

// Options configures a single fingerprint run.
type Options struct {
	Mode Mode
	// IncludeHidden includes dot-prefixed files and directories.
	IncludeHidden bool
	// Excludes are doublestar patterns matched against slash-separated
	// relative paths. A trailing "/" prunes matching directories.
	Excludes []string
	// Concurrency bounds parallel hashing. Zero means runtime.NumCPU().
	Concurrency int
	// Hasher defaults to checksum.SHA256.
	Hasher checksum.Hasher
	// Now defaults to time.Now.
	Now func() time.Time
}

// Validate checks exclude patterns and the mode.
func (o Options) Validate() error {
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	for _, pattern := range o.Excludes {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}

// Filter returns the entry selection implied by o.
func (o Options) Filter() Filter {
	return Filter{IncludeHidden: o.IncludeHidden, Excludes: o.Excludes}
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModePathPreserving
	}
	if o.Concurrency == 0 {
		o.Concurrency = runtime.NumCPU()
	}
	if o.Hasher == nil {
		o.Hasher = checksum.SHA256{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Take fingerprints every regular file under root.
//
// It returns an *IOError if root is missing, not a directory, or a file cannot
// be read, ErrEmptyTree if no regular file is found, and a *DuplicateKeyError
// if two files map to the same key.
func Take(ctx context.Context, root string, opts Options) (*Fingerprint, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	w, err := newWalker(root, opts)
	if err != nil {
		return nil, err
	}

	capturedAt := opts.Now()
	files, err := w.walk()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("fingerprint %s: %w", w.root, ErrEmptyTree)
	}

	entries := make([]FileEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := opts.Hasher.HashFile(f.abs)
			if err != nil {
				return &IOError{Op: "hash", Path: f.abs, Err: err}
			}
			entries[i] = FileEntry{
				Path:    keyFor(opts.Mode, f.rel),
				RelPath: f.rel,
				Hash:    digest,
				Size:    f.size,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fp, err := New(w.root, opts.Mode, capturedAt, entries)
	if err != nil {
		return nil, err
	}
	fp.Filter = w.filter
	return fp, nil
}

func keyFor(mode Mode, relPath string) string {
	if mode == ModeBasenameOnly {
		return path.Base(relPath)
	}
	return relPath
}
