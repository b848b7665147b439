package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		preset        string
		mode          fingerprint.Mode
		includeHidden bool
		margin        capacity.Ratio
		overhead      uint64
		container     bool
		copyMethod    string
	}{
		{"directory", fingerprint.ModePathPreserving, false, capacity.Percent(10), 0, false, CopyRsync},
		{"directory-flat", fingerprint.ModeBasenameOnly, false, capacity.Percent(10), 0, false, CopyNative},
		{"container", fingerprint.ModePathPreserving, true, capacity.Ratio{}, 256 << 20, true, CopyRsync},
		{"container-flat", fingerprint.ModeBasenameOnly, true, capacity.Ratio{}, 256 << 20, true, CopyNative},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			cfg, err := Preset(tt.preset)
			require.NoError(t, err)

			opts, err := cfg.FingerprintOptions()
			require.NoError(t, err)
			assert.Equal(t, tt.mode, opts.Mode)
			assert.Equal(t, tt.includeHidden, opts.IncludeHidden)

			margin, err := cfg.Margin()
			require.NoError(t, err)
			assert.True(t, margin.IsZero() == tt.margin.IsZero())
			if !tt.margin.IsZero() {
				assert.Equal(t, tt.margin.String(), margin.String())
			}

			overhead, err := cfg.OverheadBytes()
			require.NoError(t, err)
			assert.Equal(t, tt.overhead, overhead)

			assert.Equal(t, tt.container, cfg.Container.Enabled)
			assert.Equal(t, tt.copyMethod, cfg.Copy.Method)

			unit, err := cfg.AllocationUnitBytes()
			require.NoError(t, err)
			assert.Equal(t, uint64(1<<20), unit)
		})
	}
}

func TestPreset_DefaultAndUnknown(t *testing.T) {
	cfg, err := Preset("")
	require.NoError(t, err)
	assert.Equal(t, "directory", cfg.Preset)

	_, err = Preset("tape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container-flat")

	// Presets are copies.
	a, _ := Preset("directory")
	a.Fingerprint.Excludes = append(a.Fingerprint.Excludes, "**/*.tmp")
	b, _ := Preset("directory")
	assert.Empty(t, b.Fingerprint.Excludes)
}

func TestParse_OverlaysPreset(t *testing.T) {
	t.Setenv("VAULT_DIR", "/srv/vaults")

	data := []byte(`
preset: container
fingerprint:
  excludes:
    - "**/*.tmp"
    - "**/cache/"
capacity:
  overhead: 128MiB
container:
  path: $(VAULT_DIR)/photos.hc
  filesystem: ext4
  keyfiles:
    - /etc/vault/photos.key
logging:
  format: json
report:
  s3Uri: s3://reports/vault
`)

	cfg, err := Parse(data, "")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "container", cfg.Preset)
	assert.True(t, cfg.Container.Enabled)
	assert.True(t, cfg.Fingerprint.IncludeHidden, "preset value survives when the file is silent")
	assert.Equal(t, []string{"**/*.tmp", "**/cache/"}, cfg.Fingerprint.Excludes)
	assert.Equal(t, "/srv/vaults/photos.hc", cfg.Container.Path)
	assert.Equal(t, "ext4", cfg.Container.Filesystem)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)

	overhead, err := cfg.OverheadBytes()
	require.NoError(t, err)
	assert.Equal(t, uint64(128<<20), overhead)
}

func TestParse_ExplicitPresetWins(t *testing.T) {
	cfg, err := Parse([]byte("preset: container\n"), "directory-flat")
	require.NoError(t, err)
	assert.Equal(t, "directory-flat", cfg.Preset)
	assert.False(t, cfg.Container.Enabled)
	assert.Equal(t, CopyNative, cfg.Copy.Method)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("fingerprint: [unclosed"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshalling yaml")
}

func TestLoad(t *testing.T) {
	cfg, err := Load("", "container-flat")
	require.NoError(t, err)
	assert.Equal(t, "container-flat", cfg.Preset)

	path := filepath.Join(t.TempDir(), "vault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capacity:\n  margin: 15%\n"), 0o644))
	cfg, err = Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "directory", cfg.Preset)
	assert.Equal(t, "15%", cfg.Capacity.Margin)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg, err := Preset("container")
	require.NoError(t, err)
	cfg.Fingerprint.Mode = "inode"
	cfg.Capacity.Margin = "-5%"
	cfg.Capacity.Overhead = "lots"
	cfg.Copy.Method = "scp"
	cfg.Container.Filesystem = "zfs"
	cfg.Logging.Level = "loud"
	cfg.Report.S3URI = "https://example.com"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"fingerprint.mode",
		"capacity.margin",
		"capacity.overhead",
		"copy.method",
		"container.path is required",
		"container.filesystem",
		"logging.level",
		"report.s3Uri",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_RsyncCannotFlatten(t *testing.T) {
	cfg, err := Preset("directory-flat")
	require.NoError(t, err)
	cfg.Copy.Method = CopyRsync

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot flatten")
}

func TestTransfer(t *testing.T) {
	cfg, err := Preset("container")
	require.NoError(t, err)
	cfg.Container.Path = "/srv/vaults/a.hc"
	cfg.Container.Keyfiles = []string{"/etc/vault/a.key"}

	tc, err := cfg.Transfer(container.Credentials{Keyfiles: []string{"/tmp/extra.key"}})
	require.NoError(t, err)

	assert.Equal(t, uint64(256<<20), tc.OverheadBytes)
	assert.True(t, tc.Margin.IsZero())
	assert.True(t, tc.Fingerprint.IncludeHidden)
	require.NotNil(t, tc.Container)
	assert.Equal(t, "/srv/vaults/a.hc", tc.Container.Path)
	assert.Equal(t, uint64(1<<20), tc.Container.AllocationUnit)
	assert.Equal(t, []string{"/etc/vault/a.key", "/tmp/extra.key"}, tc.Container.Credentials.Keyfiles)

	dir, err := Preset("directory")
	require.NoError(t, err)
	tc, err = dir.Transfer(container.Credentials{})
	require.NoError(t, err)
	assert.Nil(t, tc.Container)
	assert.Equal(t, "10%", tc.Margin.String())
}
