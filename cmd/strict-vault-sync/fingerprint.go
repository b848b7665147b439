package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
)

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint <root>",
		Short: "Write the SHA-256 manifest of a tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runFingerprint,
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Manifest path (default: stdout)")
	return cmd
}

func runFingerprint(cmd *cobra.Command, args []string) error {
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

	fp, err := fingerprint.Take(ctx, args[0], opts)
	if err != nil {
		return err
	}

	if outputFile == "" || outputFile == "-" {
		return fingerprint.WriteManifest(cmd.OutOrStdout(), fp)
	}
	if err := fingerprint.WriteManifestFile(outputFile, fp); err != nil {
		return err
	}
	if !cfg.Logging.Quiet {
		fmt.Fprintf(os.Stderr, "%d files (%s) fingerprinted into %s\n",
			fp.Len(), humanize.IBytes(uint64(fp.TotalBytes())), outputFile)
	}
	return nil
}
