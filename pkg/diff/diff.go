// Package diff classifies how a destination fingerprint diverges from its source.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/checksum"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
)

// Mismatch is a key present on both sides with different content.
type Mismatch struct {
	Path        string          `json:"path"`
	Source      checksum.Digest `json:"source_sha256"`
	Destination checksum.Digest `json:"destination_sha256"`
}

// Report is the divergence between a source and a destination fingerprint.
// Every key appears in at most one of the three lists; each list is sorted.
type Report struct {
	Missing    []string   `json:"missing"`
	Extra      []string   `json:"extra"`
	Mismatched []Mismatch `json:"mismatched"`
	// Matched counts keys present on both sides with equal content.
	Matched int `json:"matched"`
}

// IsClean reports whether the two fingerprints were identical.
func (r Report) IsClean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Mismatched) == 0
}

// Compare classifies source against destination. Nil fingerprints are
// treated as empty.
func Compare(source, destination *fingerprint.Fingerprint) Report {
	srcEntries := source.Entries()
	dstEntries := destination.Entries()

	sourceMap := make(map[string]checksum.Digest, len(srcEntries))
	for _, e := range srcEntries {
		sourceMap[e.Path] = e.Hash
	}

	destMap := make(map[string]checksum.Digest, len(dstEntries))
	for _, e := range dstEntries {
		destMap[e.Path] = e.Hash
	}

	report := Report{
		Missing:    []string{},
		Extra:      []string{},
		Mismatched: []Mismatch{},
	}

	for path, srcHash := range sourceMap {
		destHash, exists := destMap[path]
		if !exists {
			report.Missing = append(report.Missing, path)
			continue
		}
		if srcHash != destHash {
			report.Mismatched = append(report.Mismatched, Mismatch{
				Path:        path,
				Source:      srcHash,
				Destination: destHash,
			})
			continue
		}
		report.Matched++
	}

	for path := range destMap {
		if _, exists := sourceMap[path]; !exists {
			report.Extra = append(report.Extra, path)
		}
	}

	sortReport(&report)
	return report
}

func sortReport(r *Report) {
	sort.Strings(r.Missing)
	sort.Strings(r.Extra)
	sort.Slice(r.Mismatched, func(i, j int) bool {
		return r.Mismatched[i].Path < r.Mismatched[j].Path
	})
}

// Summary renders the bucket counts on one line.
func (r Report) Summary() string {
	return fmt.Sprintf("%d matched, %d missing, %d extra, %d mismatched",
		r.Matched, len(r.Missing), len(r.Extra), len(r.Mismatched))
}

// String renders every divergent path grouped by bucket.
func (r Report) String() string {
	if r.IsClean() {
		return fmt.Sprintf("clean: %d files verified", r.Matched)
	}

	var b strings.Builder
	b.WriteString(r.Summary())
	for _, p := range r.Missing {
		fmt.Fprintf(&b, "\n  missing:    %s", p)
	}
	for _, p := range r.Extra {
		fmt.Fprintf(&b, "\n  extra:      %s", p)
	}
	for _, m := range r.Mismatched {
		fmt.Fprintf(&b, "\n  mismatched: %s (source %s, destination %s)", m.Path, m.Source, m.Destination)
	}
	return b.String()
}
