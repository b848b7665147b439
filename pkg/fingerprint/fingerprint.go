// Package fingerprint captures the content of a file tree as a set of
// (key, SHA-256) pairs that can be compared across different roots.
package fingerprint

import (
	"fmt"
	"sort"
	"time"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/checksum"
)

// Mode selects how entries are keyed.
type Mode string

const (
	// ModePathPreserving keys entries by their slash-separated path relative to the root.
	ModePathPreserving Mode = "path"
	// ModeBasenameOnly keys entries by file name alone, for destinations that
	// flatten the source layout.
	ModeBasenameOnly Mode = "basename"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePathPreserving, ModeBasenameOnly:
		return Mode(s), nil
	case "":
		return ModePathPreserving, nil
	default:
		return "", fmt.Errorf("unknown fingerprint mode %q (want %q or %q)", s, ModePathPreserving, ModeBasenameOnly)
	}
}

// FileEntry is one file of a Fingerprint.
type FileEntry struct {
	// Path is the comparison key: the relative path, or the base name in
	// ModeBasenameOnly.
	Path string `json:"path"`
	// RelPath is the slash-separated path relative to the root the file was
	// found at. Equal to Path in ModePathPreserving.
	RelPath string          `json:"rel_path,omitempty"`
	Hash    checksum.Digest `json:"sha256"`
	Size    int64           `json:"size"`
}

// Fingerprint is an immutable set of FileEntry for one tree snapshot.
type Fingerprint struct {
	Root       string
	CapturedAt time.Time
	Mode       Mode
	// Filter records which entries of the tree were considered.
	Filter Filter

	entries []FileEntry
	index   map[string]int
}

// New builds a Fingerprint from entries. Entries are sorted by Path; duplicate
// keys are rejected with a *DuplicateKeyError.
func New(root string, mode Mode, capturedAt time.Time, entries []FileEntry) (*Fingerprint, error) {
	sorted := make([]FileEntry, len(entries))
	copy(sorted, entries)
	for i := range sorted {
		if sorted[i].RelPath == "" {
			sorted[i].RelPath = sorted[i].Path
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Path != sorted[j].Path {
			return sorted[i].Path < sorted[j].Path
		}
		return sorted[i].RelPath < sorted[j].RelPath
	})

	var collisions []Collision
	index := make(map[string]int, len(sorted))
	for i, e := range sorted {
		if first, exists := index[e.Path]; exists {
			n := len(collisions)
			if n == 0 || collisions[n-1].Key != e.Path {
				collisions = append(collisions, Collision{Key: e.Path, Paths: []string{sorted[first].RelPath}})
				n++
			}
			collisions[n-1].Paths = append(collisions[n-1].Paths, e.RelPath)
			continue
		}
		index[e.Path] = i
	}
	if len(collisions) > 0 {
		return nil, &DuplicateKeyError{Root: root, Collisions: collisions}
	}

	return &Fingerprint{
		Root:       root,
		CapturedAt: capturedAt,
		Mode:       mode,
		entries:    sorted,
		index:      index,
	}, nil
}

// Len returns the number of entries. A nil Fingerprint is empty.
func (f *Fingerprint) Len() int {
	if f == nil {
		return 0
	}
	return len(f.entries)
}

// Entries returns a copy of the entries sorted by Path.
func (f *Fingerprint) Entries() []FileEntry {
	if f == nil {
		return nil
	}
	out := make([]FileEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Lookup returns the entry for key.
func (f *Fingerprint) Lookup(key string) (FileEntry, bool) {
	if f == nil {
		return FileEntry{}, false
	}
	i, ok := f.index[key]
	if !ok {
		return FileEntry{}, false
	}
	return f.entries[i], true
}

// TotalBytes is the summed size of all entries.
func (f *Fingerprint) TotalBytes() int64 {
	var total int64
	if f == nil {
		return 0
	}
	for _, e := range f.entries {
		total += e.Size
	}
	return total
}

// Equal reports whether f and other hold the same (key, hash) pairs.
// Root, capture time and sizes are ignored.
func (f *Fingerprint) Equal(other *Fingerprint) bool {
	if f.Len() != other.Len() {
		return false
	}
	for _, e := range f.Entries() {
		o, ok := other.Lookup(e.Path)
		if !ok || o.Hash != e.Hash {
			return false
		}
	}
	return true
}
