package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/checksum"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

func digest(t *testing.T, s string) checksum.Digest {
	t.Helper()
	d, err := checksum.CalculateSHA256(strings.NewReader(s))
	require.NoError(t, err)
	return d
}

func newFingerprint(t *testing.T, root string, files map[string]string) *fingerprint.Fingerprint {
	t.Helper()
	var entries []fingerprint.FileEntry
	for p, content := range files {
		entries = append(entries, fingerprint.FileEntry{Path: p, Hash: digest(t, content), Size: int64(len(content))})
	}
	fp, err := fingerprint.New(root, fingerprint.ModePathPreserving, time.Unix(0, 0).UTC(), entries)
	require.NoError(t, err)
	return fp
}

func TestFromJob_RolledBack(t *testing.T) {
	src := newFingerprint(t, "/data/src", map[string]string{"a.txt": "H1", "b.txt": "H2"})
	dst := newFingerprint(t, "/mnt/dst", map[string]string{"a.txt": "H1", "b.txt": "H3"})
	d := diff.Compare(src, dst)
	plan := capacity.Compute(4, 1<<30, 0, capacity.Percent(10))
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	job := &transfer.Job{
		ID:                     "3f1c",
		SourceRoot:             "/data/src",
		DestinationRoot:        "/mnt/dst",
		Phase:                  transfer.PhaseRolledBack,
		History:                []transfer.Phase{transfer.PhasePlanned, transfer.PhaseCopied, transfer.PhaseVerified, transfer.PhaseRolledBack},
		Plan:                   &plan,
		SourceFingerprint:      src,
		DestinationFingerprint: dst,
		Divergence:             &d,
		StartedAt:              started,
		FinishedAt:             started.Add(1500 * time.Millisecond),
		Err:                    &transfer.Error{Kind: transfer.KindVerification, Op: "compare", Err: errors.New("destination diverges from source")},
		RollbackErrors:         []error{errors.New("remove /mnt/dst/b.txt: permission denied")},
	}

	r := FromJob(job)
	assert.Equal(t, "3f1c", r.JobID)
	assert.Equal(t, "rolled_back", r.Status)
	assert.Equal(t, "path", r.Mode)
	assert.Equal(t, "1.5s", r.Duration)
	assert.Equal(t, []string{"planned", "copied", "verified", "rolled_back"}, r.Phases)
	assert.Equal(t, Summary{SourceFiles: 2, SourceBytes: 4, DestinationFiles: 2, Matched: 1, Mismatched: 1}, r.Summary)
	require.Len(t, r.Files, 1)
	assert.Equal(t, File{
		Action:            "mismatched",
		Path:              "b.txt",
		SourceSHA256:      digest(t, "H2").String(),
		DestinationSHA256: digest(t, "H3").String(),
	}, r.Files[0])
	require.NotNil(t, r.Error)
	assert.Equal(t, "VERIFICATION", r.Error.Kind)
	assert.Equal(t, []string{"remove /mnt/dst/b.txt: permission denied"}, r.RollbackErrors)
	assert.Empty(t, r.Container)
}

func TestFromJob_CapacityFailureHasNoFingerprints(t *testing.T) {
	plan := capacity.Compute(500<<20, 400<<20, 0, capacity.Percent(10))
	job := &transfer.Job{
		ID:              "j",
		SourceRoot:      "/src",
		DestinationRoot: "/dst",
		ContainerPath:   "/vaults/a.hc",
		Phase:           transfer.PhaseFailed,
		Plan:            &plan,
		Err:             &transfer.Error{Kind: transfer.KindCapacity, Op: "plan", Err: plan.Err(), Plan: &plan},
	}

	r := FromJob(job)
	assert.Equal(t, "failed", r.Status)
	assert.Equal(t, "/vaults/a.hc", r.Container)
	assert.Equal(t, Summary{}, r.Summary)
	assert.NotNil(t, r.Files)
	require.NotNil(t, r.Capacity)
	assert.False(t, r.Capacity.Sufficient)
	assert.Equal(t, "CAPACITY", r.Error.Kind)

	data, err := r.Marshal()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["files"])
	assert.Equal(t, float64(550<<20), decoded["capacity"].(map[string]any)["required_bytes"])
}

func TestFromComparison(t *testing.T) {
	src := newFingerprint(t, "/data/src", map[string]string{"a": "1", "b": "2"})
	dst := newFingerprint(t, "/mnt/dst", map[string]string{"b": "2", "c": "3"})
	now := time.Now()

	r := FromComparison(src, dst, diff.Compare(src, dst), now, now)
	assert.Equal(t, StatusDiverged, r.Status)
	assert.Equal(t, "/data/src", r.Source)
	assert.Equal(t, "/mnt/dst", r.Destination)
	assert.Equal(t, []File{{Action: "missing", Path: "a"}, {Action: "extra", Path: "c"}}, r.Files)

	clean := FromComparison(src, src, diff.Compare(src, src), now, now)
	assert.Equal(t, StatusClean, clean.Status)
	assert.Empty(t, clean.Files)
	assert.Equal(t, 2, clean.Summary.Matched)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	r := Report{Status: StatusClean, Files: []File{}}
	require.NoError(t, WriteFile(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))

	var got Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, StatusClean, got.Status)
}
