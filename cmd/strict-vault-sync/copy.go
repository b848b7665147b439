package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-vault-sync/internal/logging"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/report"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <source> <destination>",
		Short: "Copy, verify, and commit or roll back",
		Long: `Copies <source> into <destination> and commits only if the destination's
SHA-256 fingerprint equals the source's. <destination> must be an existing empty
directory; with --container it is the mount point of the new container.`,
		Args: cobra.ExactArgs(2),
		RunE: runCopy,
	}
	cmd.Flags().StringVar(&copyMethod, "copy-method", "", "Copy with rsync or native")
	cmd.Flags().StringSliceVar(&rsyncArgs, "rsync-arg", nil, "Extra rsync arguments (multiple allowed)")
	cmd.Flags().StringVar(&manifestOut, "manifest-out", "", "Write the source fingerprint manifest here after a commit")
	return cmd
}

func runCopy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	var creds container.Credentials
	if cfg.Container.Enabled {
		if creds, err = readCredentials(cmd.InOrStdin()); err != nil {
			return err
		}
	}
	tcfg, err := cfg.Transfer(creds)
	if err != nil {
		return err
	}

	runner := newRunner(cfg)
	deps := transfer.Dependencies{
		Copier: newCopier(cfg, runner),
		Logger: log,
	}
	if cfg.Container.Enabled {
		if deps.Containers, err = newContainerManager(cfg, runner); err != nil {
			return err
		}
	}

	orch, err := transfer.New(tcfg, deps)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	job, runErr := orch.Run(ctx, args[0], args[1])
	logging.NewPrinter(os.Stdout, cfg.Logging.Quiet).PrintJob(job)

	if err := publishReport(ctx, cfg, report.FromJob(job), job.ID); err != nil {
		log.Error("report", cfg.Report.JSONFile, err)
		if runErr == nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if manifestOut != "" {
		if err := fingerprint.WriteManifestFile(manifestOut, job.SourceFingerprint); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	return nil
}
