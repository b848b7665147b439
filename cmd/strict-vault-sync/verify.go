package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-vault-sync/internal/logging"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/report"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <source|manifest.json> <destination>",
		Short: "Compare a destination against a source tree or a saved manifest",
		Long: `Fingerprints <destination> and compares it with <source>, which is either a
directory or a manifest written by "fingerprint" or "copy --manifest-out".
Nothing is copied or deleted. Exits with status 1 if the trees diverge.`,
		Args: cobra.ExactArgs(2),
		RunE: runVerify,
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.FingerprintOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	started := time.Now()
	src, err := sourceFingerprint(ctx, args[0], opts)
	if err != nil {
		return err
	}
	// A manifest fixes the keying mode and entry selection of the comparison.
	opts.Mode = src.Mode
	opts.IncludeHidden = src.Filter.IncludeHidden
	opts.Excludes = src.Filter.Excludes

	dst, err := fingerprint.Take(ctx, args[1], opts)
	if err != nil {
		return fmt.Errorf("failed to fingerprint destination: %w", err)
	}

	result := diff.Compare(src, dst)
	logging.NewPrinter(os.Stdout, cfg.Logging.Quiet).PrintComparison(result)

	r := report.FromComparison(src, dst, result, started, time.Now())
	if err := publishReport(ctx, cfg, r, "verify-"+started.UTC().Format("20060102T150405Z")); err != nil {
		return err
	}
	if !result.IsClean() {
		return errors.New("destination diverges from source: " + result.Summary())
	}
	return nil
}

func sourceFingerprint(ctx context.Context, arg string, opts fingerprint.Options) (*fingerprint.Fingerprint, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if info.Mode().IsRegular() {
		fp, err := fingerprint.ReadManifestFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return fp, nil
	}
	fp, err := fingerprint.Take(ctx, arg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint source: %w", err)
	}
	return fp, nil
}
