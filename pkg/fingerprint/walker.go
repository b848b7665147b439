package fingerprint

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// candidate is a regular file found by the walker, not yet hashed.
type candidate struct {
	abs  string
	rel  string
	size int64
}

// Filter decides which entries of a tree take part in a fingerprint. Paths
// are slash-separated and relative to the root. Copiers apply the same Filter
// so nothing lands in a destination that verification cannot see.
type Filter struct {
	IncludeHidden bool
	// Excludes are doublestar patterns. A trailing "/" prunes directories.
	Excludes []string
}

// SkipDir reports whether the directory at relPath is pruned.
func (f Filter) SkipDir(relPath string) bool {
	if f.hidden(relPath) {
		return true
	}
	for _, pattern := range f.Excludes {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(strings.TrimSuffix(pattern, "/"), relPath); matched {
			return true
		}
	}
	return false
}

// SkipFile reports whether the non-directory entry at relPath is left out.
// Directory patterns are handled by SkipDir.
func (f Filter) SkipFile(relPath string) bool {
	if f.hidden(relPath) {
		return true
	}
	for _, pattern := range f.Excludes {
		if strings.HasSuffix(pattern, "/") {
			continue
		}
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func (f Filter) hidden(relPath string) bool {
	return !f.IncludeHidden && isHidden(path.Base(relPath))
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// walker walks local files, applying a Filter
type walker struct {
	root   string
	filter Filter
}

func newWalker(root string, opts Options) (*walker, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: root, Err: err}
	}

	// Validate root exists and is a directory
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: absRoot, Err: err}
	}
	if !info.IsDir() {
		return nil, &IOError{Op: "stat", Path: absRoot, Err: fmt.Errorf("not a directory")}
	}

	return &walker{
		root:   absRoot,
		filter: opts.Filter(),
	}, nil
}

// walk returns every regular file under the root in lexical order.
func (w *walker) walk() ([]candidate, error) {
	var files []candidate

	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Op: "walk", Path: p, Err: err}
		}
		if p == w.root {
			return nil
		}

		relPath, err := filepath.Rel(w.root, p)
		if err != nil {
			return &IOError{Op: "walk", Path: p, Err: err}
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.filter.SkipDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks, devices, sockets and pipes are not content.
		if !d.Type().IsRegular() {
			return nil
		}

		if w.filter.SkipFile(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return &IOError{Op: "stat", Path: p, Err: err}
		}

		files = append(files, candidate{
			abs:  p,
			rel:  relPath,
			size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}
