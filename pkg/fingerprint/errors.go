package fingerprint

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTree is returned when a walk yields no regular files.
var ErrEmptyTree = errors.New("tree contains no regular files")

// IOError reports a filesystem failure while fingerprinting.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Collision lists the files that map to one key.
type Collision struct {
	Key   string
	Paths []string
}

// DuplicateKeyError is returned when two files produce the same key, which
// happens in ModeBasenameOnly when files in different directories share a name.
type DuplicateKeyError struct {
	Root       string
	Collisions []Collision
}

func (e *DuplicateKeyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d duplicate fingerprint keys under %s", len(e.Collisions), e.Root)
	for _, c := range e.Collisions {
		fmt.Fprintf(&b, "\n  %s: %s", c.Key, strings.Join(c.Paths, ", "))
	}
	return b.String()
}
