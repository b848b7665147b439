package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

type Config struct {
	Preset      string            `yaml:"preset"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Capacity    CapacityConfig    `yaml:"capacity"`
	Copy        CopyConfig        `yaml:"copy"`
	Container   ContainerConfig   `yaml:"container"`
	Logging     LoggingConfig     `yaml:"logging"`
	Report      ReportConfig      `yaml:"report"`
}

type FingerprintConfig struct {
	Mode          string   `yaml:"mode"` // "path", "basename"
	IncludeHidden bool     `yaml:"includeHidden"`
	Excludes      []string `yaml:"excludes"`
	Concurrency   int      `yaml:"concurrency"`
}

type CapacityConfig struct {
	Margin   string `yaml:"margin"`   // e.g. 10%, 0.1, 1/10
	Overhead string `yaml:"overhead"` // e.g. 256MiB
}

type CopyConfig struct {
	Method      string   `yaml:"method"` // "rsync", "native"
	RsyncBinary string   `yaml:"rsyncBinary"`
	RsyncArgs   []string `yaml:"rsyncArgs"`
}

type ContainerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Path           string   `yaml:"path"`
	Filesystem     string   `yaml:"filesystem"`     // "exfat", "ext4", "fat", "ntfs"
	AllocationUnit string   `yaml:"allocationUnit"` // e.g. 1MiB
	Keyfiles       []string `yaml:"keyfiles"`
	Binary         string   `yaml:"binary"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "info", "debug", etc.
	Format string `yaml:"format"` // "json", "text"
	Quiet  bool   `yaml:"quiet"`
}

type ReportConfig struct {
	JSONFile   string `yaml:"jsonFile"`
	S3URI      string `yaml:"s3Uri"`
	AWSProfile string `yaml:"awsProfile"`
	AWSRegion  string `yaml:"awsRegion"`
}

const (
	CopyRsync  = "rsync"
	CopyNative = "native"
)

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.FingerprintOptions(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Margin(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.OverheadBytes(); err != nil {
		errs = append(errs, err)
	}

	switch c.Copy.Method {
	case CopyRsync:
		if c.Fingerprint.Mode == string(fingerprint.ModeBasenameOnly) {
			errs = append(errs, errors.New("copy.method rsync cannot flatten a tree; use native with basename mode"))
		}
	case CopyNative:
	default:
		errs = append(errs, fmt.Errorf("copy.method must be %q or %q, got %q", CopyRsync, CopyNative, c.Copy.Method))
	}

	if c.Container.Enabled {
		if c.Container.Path == "" {
			errs = append(errs, errors.New("container.path is required when containers are enabled"))
		}
		if _, err := container.ParseFilesystem(c.Container.Filesystem); err != nil {
			errs = append(errs, fmt.Errorf("container.filesystem: %w", err))
		}
		if _, err := c.AllocationUnitBytes(); err != nil {
			errs = append(errs, err)
		}
		if slices.Contains(c.Container.Keyfiles, "") {
			errs = append(errs, errors.New("container.keyfiles must not contain empty paths"))
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if c.Report.S3URI != "" && !strings.HasPrefix(c.Report.S3URI, "s3://") {
		errs = append(errs, fmt.Errorf("report.s3Uri must start with s3://, got %q", c.Report.S3URI))
	}

	return errors.Join(errs...)
}

func (c *Config) FingerprintOptions() (fingerprint.Options, error) {
	mode, err := fingerprint.ParseMode(c.Fingerprint.Mode)
	if err != nil {
		return fingerprint.Options{}, fmt.Errorf("fingerprint.mode: %w", err)
	}
	opts := fingerprint.Options{
		Mode:          mode,
		IncludeHidden: c.Fingerprint.IncludeHidden,
		Excludes:      c.Fingerprint.Excludes,
		Concurrency:   c.Fingerprint.Concurrency,
	}
	if err := opts.Validate(); err != nil {
		return fingerprint.Options{}, fmt.Errorf("fingerprint: %w", err)
	}
	return opts, nil
}

func (c *Config) Margin() (capacity.Ratio, error) {
	r, err := capacity.ParseRatio(c.Capacity.Margin)
	if err != nil {
		return capacity.Ratio{}, fmt.Errorf("capacity.margin: %w", err)
	}
	return r, nil
}

func (c *Config) OverheadBytes() (uint64, error) {
	return parseSize("capacity.overhead", c.Capacity.Overhead)
}

func (c *Config) AllocationUnitBytes() (uint64, error) {
	return parseSize("container.allocationUnit", c.Container.AllocationUnit)
}

func parseSize(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return n, nil
}

// Transfer converts c into the orchestrator's configuration. Credentials are
// supplied by the caller; the password never lives in Config.
func (c *Config) Transfer(creds container.Credentials) (transfer.Config, error) {
	if err := c.Validate(); err != nil {
		return transfer.Config{}, err
	}
	opts, _ := c.FingerprintOptions()
	margin, _ := c.Margin()
	overhead, _ := c.OverheadBytes()

	tc := transfer.Config{
		Fingerprint:   opts,
		OverheadBytes: overhead,
		Margin:        margin,
	}
	if c.Container.Enabled {
		unit, _ := c.AllocationUnitBytes()
		creds.Keyfiles = append(slices.Clone(c.Container.Keyfiles), creds.Keyfiles...)
		tc.Container = &transfer.ContainerConfig{
			Path:           c.Container.Path,
			AllocationUnit: unit,
			Credentials:    creds,
		}
	}
	return tc, nil
}
