package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-vault-sync/internal/logging"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/report"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/transfer"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <source> <destination>",
		Short: "Check preconditions and free space without copying",
		Args:  cobra.ExactArgs(2),
		RunE:  runPlan,
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	// Planning never unlocks a container, so no password is read.
	tcfg, err := cfg.Transfer(container.Credentials{})
	if err != nil {
		return err
	}
	deps := transfer.Dependencies{
		Copier: copier.NewNative(false),
		Logger: log,
	}
	if cfg.Container.Enabled {
		if deps.Containers, err = newContainerManager(cfg, newRunner(cfg)); err != nil {
			return err
		}
	}
	orch, err := transfer.New(tcfg, deps)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	job, planErr := orch.Plan(ctx, args[0], args[1])
	printer := logging.NewPrinter(os.Stdout, cfg.Logging.Quiet)
	if job.Plan != nil {
		printer.PrintPlan(*job.Plan)
	} else {
		printer.PrintJob(job)
	}

	if err := publishReport(ctx, cfg, report.FromJob(job), job.ID); err != nil && planErr == nil {
		return err
	}
	return planErr
}
