package fingerprint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const manifestVersion = 1

type manifest struct {
	Version       int         `json:"version"`
	Root          string      `json:"root"`
	CapturedAt    time.Time   `json:"captured_at"`
	Mode          Mode        `json:"mode"`
	IncludeHidden bool        `json:"include_hidden"`
	Excludes      []string    `json:"excludes,omitempty"`
	Files         []FileEntry `json:"files"`
}

// WriteManifest encodes f as an indented JSON manifest.
func WriteManifest(w io.Writer, f *Fingerprint) error {
	m := manifest{
		Version:       manifestVersion,
		Root:          f.Root,
		CapturedAt:    f.CapturedAt,
		Mode:          f.Mode,
		IncludeHidden: f.Filter.IncludeHidden,
		Excludes:      f.Filter.Excludes,
		Files:         f.Entries(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

// WriteManifestFile writes the manifest for f to path.
func WriteManifestFile(path string, f *Fingerprint) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := WriteManifest(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadManifest decodes a manifest written by WriteManifest.
func ReadManifest(r io.Reader) (*Fingerprint, error) {
	var m manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	mode, err := ParseMode(string(m.Mode))
	if err != nil {
		return nil, err
	}
	fp, err := New(m.Root, mode, m.CapturedAt, m.Files)
	if err != nil {
		return nil, err
	}
	fp.Filter = Filter{IncludeHidden: m.IncludeHidden, Excludes: m.Excludes}
	return fp, nil
}

// ReadManifestFile reads a manifest from path.
func ReadManifestFile(path string) (*Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	return ReadManifest(file)
}
