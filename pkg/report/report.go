// Package report renders transfer outcomes as JSON documents.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

// Status values. Job reports use the terminal phase name.
const (
	StatusClean    = "clean"
	StatusDiverged = "diverged"
)

// Report is the document written by --report-json-file.
type Report struct {
	JobID       string    `json:"job_id,omitempty"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	Container   string    `json:"container,omitempty"`
	Mode        string    `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Duration    string    `json:"duration"`
	Phases      []string  `json:"phases,omitempty"`

	Capacity      *capacity.Plan `json:"capacity,omitempty"`
	ContainerSize uint64         `json:"container_size_bytes,omitempty"`

	Files   []File  `json:"files"`
	Summary Summary `json:"summary"`

	Error          *ErrorInfo `json:"error,omitempty"`
	RollbackErrors []string   `json:"rollback_errors"`
	Warnings       []string   `json:"warnings"`
}

// File is one divergent path.
type File struct {
	Action            string `json:"action"` // "missing", "extra", "mismatched"
	Path              string `json:"path"`
	SourceSHA256      string `json:"source_sha256,omitempty"`
	DestinationSHA256 string `json:"destination_sha256,omitempty"`
}

type Summary struct {
	SourceFiles      int    `json:"source_files"`
	SourceBytes      uint64 `json:"source_bytes"`
	DestinationFiles int    `json:"destination_files"`
	Matched          int    `json:"matched"`
	Missing          int    `json:"missing"`
	Extra            int    `json:"extra"`
	Mismatched       int    `json:"mismatched"`
}

type ErrorInfo struct {
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// FromJob builds the report for a finished transfer job.
func FromJob(job *transfer.Job) Report {
	r := Report{
		JobID:          job.ID,
		Status:         string(job.Phase),
		Source:         absolute(job.SourceRoot),
		Destination:    absolute(job.DestinationRoot),
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
		Duration:       job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond).String(),
		Capacity:       job.Plan,
		ContainerSize:  job.ContainerSize,
		Files:          []File{},
		RollbackErrors: []string{},
		Warnings:       []string{},
	}
	if job.ContainerPath != "" {
		r.Container = absolute(job.ContainerPath)
	}
	if job.SourceFingerprint != nil {
		r.Mode = string(job.SourceFingerprint.Mode)
	}
	for _, p := range job.History {
		r.Phases = append(r.Phases, string(p))
	}

	r.Summary.SourceFiles = job.SourceFingerprint.Len()
	r.Summary.SourceBytes = uint64(job.SourceFingerprint.TotalBytes())
	r.Summary.DestinationFiles = job.DestinationFingerprint.Len()
	if job.Divergence != nil {
		r.addDivergence(*job.Divergence)
	}

	if job.Err != nil {
		r.Error = &ErrorInfo{
			Kind:    string(transfer.KindOf(job.Err)),
			Message: job.Err.Error(),
		}
	}
	for _, err := range job.RollbackErrors {
		r.RollbackErrors = append(r.RollbackErrors, err.Error())
	}
	r.Warnings = append(r.Warnings, job.Warnings...)
	return r
}

// FromComparison builds the report for a standalone verification of
// destination against source.
func FromComparison(source, destination *fingerprint.Fingerprint, d diff.Report, startedAt, finishedAt time.Time) Report {
	r := Report{
		Status:         StatusClean,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		Duration:       finishedAt.Sub(startedAt).Round(time.Millisecond).String(),
		Files:          []File{},
		RollbackErrors: []string{},
		Warnings:       []string{},
	}
	if source != nil {
		r.Source = source.Root
		r.Mode = string(source.Mode)
	}
	if destination != nil {
		r.Destination = destination.Root
	}
	if !d.IsClean() {
		r.Status = StatusDiverged
	}
	r.Summary.SourceFiles = source.Len()
	r.Summary.SourceBytes = uint64(source.TotalBytes())
	r.Summary.DestinationFiles = destination.Len()
	r.addDivergence(d)
	return r
}

func (r *Report) addDivergence(d diff.Report) {
	for _, p := range d.Missing {
		r.Files = append(r.Files, File{Action: "missing", Path: p})
	}
	for _, p := range d.Extra {
		r.Files = append(r.Files, File{Action: "extra", Path: p})
	}
	for _, m := range d.Mismatched {
		r.Files = append(r.Files, File{
			Action:            "mismatched",
			Path:              m.Path,
			SourceSHA256:      m.Source.String(),
			DestinationSHA256: m.Destination.String(),
		})
	}
	r.Summary.Matched = d.Matched
	r.Summary.Missing = len(d.Missing)
	r.Summary.Extra = len(d.Extra)
	r.Summary.Mismatched = len(d.Mismatched)
}

// Marshal renders r as indented JSON.
func (r Report) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes r to path.
func WriteFile(path string, r Report) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func absolute(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
