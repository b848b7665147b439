package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	configFile     string
	presetName     string
	mode           string
	includeHidden  bool
	excludes       []string
	concurrency    int
	margin         string
	overhead       string
	containerPath  string
	containerFS    string
	keyfiles       []string
	passwordStdin  bool
	copyMethod     string
	rsyncArgs      []string
	logLevel       string
	logFormat      string
	quiet          bool
	reportJSONFile string
	reportS3URI    string
	profile        string
	region         string
	manifestOut    string
	outputFile     string
)

const passwordEnv = "STRICT_VAULT_SYNC_PASSWORD"

func main() {
	code := 0
	if err := newRootCmd().Execute(); err != nil {
		code = 1
	}
	memguard.SafeExit(code)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strict-vault-sync",
		Short: "Copy directory trees and commit them only after SHA-256 verification",
		Long: `strict-vault-sync copies a directory tree into a plain directory or a freshly
created VeraCrypt container, fingerprints both sides with SHA-256, and keeps the
copy only if the fingerprints match. Any divergence rolls the destination back.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to a YAML config file")
	pf.StringVar(&presetName, "preset", "", "Preset: directory, directory-flat, container, container-flat")
	pf.StringVar(&mode, "mode", "", "Fingerprint key: path or basename")
	pf.BoolVar(&includeHidden, "include-hidden", false, "Include dot-prefixed files and directories")
	pf.StringSliceVar(&excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	pf.IntVar(&concurrency, "concurrency", 0, "Number of files hashed in parallel (default: number of CPUs)")
	pf.StringVar(&margin, "margin", "", "Free-space safety margin, e.g. 10%")
	pf.StringVar(&overhead, "overhead", "", "Fixed overhead added to the source size, e.g. 256MiB")
	pf.StringVar(&containerPath, "container", "", "Create an encrypted container at this path and copy into it")
	pf.StringVar(&containerFS, "container-filesystem", "", "Filesystem inside the container: exfat, ext4, fat, ntfs")
	pf.StringSliceVar(&keyfiles, "keyfile", nil, "Container keyfiles (multiple allowed)")
	pf.BoolVar(&passwordStdin, "password-stdin", false, "Read the container password from the first line of stdin (default: $"+passwordEnv+")")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json")
	pf.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	pf.StringVar(&reportJSONFile, "report-json-file", "", "Path to output the report as JSON file")
	pf.StringVar(&reportS3URI, "report-s3-uri", "", "Also upload the JSON report to s3://bucket/prefix")
	pf.StringVar(&profile, "profile", "", "AWS profile to use for --report-s3-uri")
	pf.StringVar(&region, "region", "", "AWS region (uses default if not specified)")

	rootCmd.AddCommand(newCopyCmd(), newPlanCmd(), newFingerprintCmd(), newVerifyCmd())
	return rootCmd
}

// signalContext is canceled on SIGINT or SIGTERM so a running job rolls back
// instead of dying mid-copy.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
