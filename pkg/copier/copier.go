// Package copier transfers a source tree into a destination root.
//
// Copiers only move bytes. Nothing they report is trusted as proof of
// integrity; the destination is fingerprinted independently afterwards.
package copier

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/yuya-takeyama/strict-vault-sync/internal/execx"
)

// Copier copies the contents of sourceRoot into destinationRoot. Entries the
// filter skips are not copied; a nil filter copies everything.
type Copier interface {
	Copy(ctx context.Context, sourceRoot, destinationRoot string, filter Filter) error
}

// Filter selects source entries by slash-separated path relative to the
// source root. fingerprint.Filter implements it.
type Filter interface {
	SkipDir(relPath string) bool
	SkipFile(relPath string) bool
}

// Rsync delegates the copy to the rsync binary.
type Rsync struct {
	Runner execx.Runner
	// Binary defaults to "rsync".
	Binary string
	// ExtraArgs are appended before the source and destination operands.
	ExtraArgs []string
}

// NewRsync creates an rsync copier using runner.
func NewRsync(runner execx.Runner, extraArgs ...string) *Rsync {
	return &Rsync{Runner: runner, Binary: "rsync", ExtraArgs: extraArgs}
}

// Args returns the argument list for copying sourceRoot into destinationRoot.
// With filesFrom set, rsync reads the NUL-separated entry list from stdin.
func (r *Rsync) Args(sourceRoot, destinationRoot string, filesFrom bool) []string {
	args := []string{"--archive", "--hard-links"}
	if filesFrom {
		args = append(args, "--files-from=-", "--from0")
	}
	args = append(args, r.ExtraArgs...)
	// Trailing separators copy the contents of the root, not the root itself.
	args = append(args, "--", withTrailingSep(sourceRoot), withTrailingSep(destinationRoot))
	return args
}

func (r *Rsync) Copy(ctx context.Context, sourceRoot, destinationRoot string, filter Filter) error {
	binary := r.Binary
	if binary == "" {
		binary = "rsync"
	}

	cmd := execx.Command{
		Name: binary,
		Args: r.Args(sourceRoot, destinationRoot, filter != nil),
	}
	if filter != nil {
		list, err := fileList(sourceRoot, filter)
		if err != nil {
			return fmt.Errorf("rsync %s -> %s: %w", sourceRoot, destinationRoot, err)
		}
		cmd.Stdin = bytes.NewReader(list)
	}

	_, err := r.Runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("rsync %s -> %s: %w", sourceRoot, destinationRoot, err)
	}
	return nil
}

func withTrailingSep(p string) string {
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return p
	}
	return p + string(filepath.Separator)
}

// fileList returns the NUL-separated relative paths of every entry under root
// that filter keeps, directories included so empty ones are recreated.
func fileList(root string, filter Filter) ([]byte, error) {
	var buf bytes.Buffer
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if skip(filter, rel, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		buf.WriteString(rel)
		buf.WriteByte(0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func skip(filter Filter, relPath string, d fs.DirEntry) bool {
	if filter == nil {
		return false
	}
	if d.IsDir() {
		return filter.SkipDir(relPath)
	}
	return filter.SkipFile(relPath)
}
