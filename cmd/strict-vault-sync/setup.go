package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-vault-sync/internal/config"
	"github.com/yuya-takeyama/strict-vault-sync/internal/execx"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/logger"
)

// loadConfig resolves the preset and config file, then applies every flag
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, presetName)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Fingerprint.Mode = mode
	}
	if flags.Changed("include-hidden") {
		cfg.Fingerprint.IncludeHidden = includeHidden
	}
	if flags.Changed("exclude") {
		cfg.Fingerprint.Excludes = append(cfg.Fingerprint.Excludes, excludes...)
	}
	if flags.Changed("concurrency") {
		cfg.Fingerprint.Concurrency = concurrency
	}
	if flags.Changed("margin") {
		cfg.Capacity.Margin = margin
	}
	if flags.Changed("overhead") {
		cfg.Capacity.Overhead = overhead
	}
	if flags.Changed("container") {
		cfg.Container.Enabled = true
		cfg.Container.Path = containerPath
	}
	if flags.Changed("container-filesystem") {
		cfg.Container.Filesystem = containerFS
	}
	if flags.Changed("keyfile") {
		cfg.Container.Keyfiles = append(cfg.Container.Keyfiles, keyfiles...)
	}
	if flags.Changed("copy-method") {
		cfg.Copy.Method = copyMethod
	}
	if flags.Changed("rsync-arg") {
		cfg.Copy.RsyncArgs = append(cfg.Copy.RsyncArgs, rsyncArgs...)
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("quiet") {
		cfg.Logging.Quiet = quiet
	}
	if flags.Changed("report-json-file") {
		cfg.Report.JSONFile = reportJSONFile
	}
	if flags.Changed("report-s3-uri") {
		cfg.Report.S3URI = reportS3URI
	}
	if flags.Changed("profile") {
		cfg.Report.AWSProfile = profile
	}
	if flags.Changed("region") {
		cfg.Report.AWSRegion = region
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	l, err := logger.NewSlog(os.Stderr, cfg.Logging.Format, level)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Quiet {
		return logger.NewQuiet(l), nil
	}
	return logger.NewVerbose(l), nil
}

func newRunner(cfg *config.Config) *execx.ExecRunner {
	runner := execx.NewRunner()
	if !cfg.Logging.Quiet {
		runner.Stdout = os.Stderr
		runner.Stderr = os.Stderr
	}
	return runner
}

func newCopier(cfg *config.Config, runner execx.Runner) copier.Copier {
	if cfg.Copy.Method == config.CopyNative {
		return copier.NewNative(cfg.Fingerprint.Mode == string(fingerprint.ModeBasenameOnly))
	}
	r := copier.NewRsync(runner, cfg.Copy.RsyncArgs...)
	if cfg.Copy.RsyncBinary != "" {
		r.Binary = cfg.Copy.RsyncBinary
	}
	return r
}

func newContainerManager(cfg *config.Config, runner execx.Runner) (*container.VeraCrypt, error) {
	fs, err := container.ParseFilesystem(cfg.Container.Filesystem)
	if err != nil {
		return nil, err
	}
	v := container.NewVeraCrypt(runner, fs)
	if cfg.Container.Binary != "" {
		v.Binary = cfg.Container.Binary
	}
	return v, nil
}

// readCredentials collects the container password from stdin or the
// environment. The environment variable is cleared once read.
func readCredentials(stdin io.Reader) (container.Credentials, error) {
	var creds container.Credentials

	if passwordStdin {
		buf, err := memguard.NewBufferFromReaderUntil(stdin, '\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return creds, fmt.Errorf("failed to read password from stdin: %w", err)
		}
		if buf == nil || buf.Size() == 0 {
			if buf != nil {
				buf.Destroy()
			}
			return creds, errors.New("--password-stdin given but stdin held no password")
		}
		creds.Password = buf.Seal()
		return creds, nil
	}

	if pw, ok := os.LookupEnv(passwordEnv); ok {
		creds.Password = container.NewPassword([]byte(pw))
		os.Unsetenv(passwordEnv)
	}
	return creds, nil
}
