package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fsinfo"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/logger"
)

// Run executes one job and returns it in its terminal phase. The error is nil
// if and only if the job committed; otherwise it is an *Error.
func (o *Orchestrator) Run(ctx context.Context, sourceRoot, destinationRoot string) (*Job, error) {
	job := o.newJob(sourceRoot, destinationRoot)
	log := o.deps.Logger.With("job_id", job.ID)

	if o.cfg.Container != nil {
		if err := o.cfg.Container.Credentials.Validate(); err != nil {
			return o.fail(job, log, preconditionError("check credentials", err))
		}
	}

	if err := o.plan(ctx, job, log); err != nil {
		return o.fail(job, log, err)
	}

	if o.cfg.Container != nil {
		if err := o.provision(ctx, job, log); err != nil {
			return o.fail(job, log, err)
		}
	}

	if err := o.copy(ctx, job, log); err != nil {
		return o.rollback(ctx, job, log, err)
	}

	if err := o.verify(ctx, job, log); err != nil {
		return o.rollback(ctx, job, log, err)
	}

	return o.commit(ctx, job, log)
}

// Plan runs only the planning phase and changes nothing on disk. On success
// the job is left in PhasePlanned.
func (o *Orchestrator) Plan(ctx context.Context, sourceRoot, destinationRoot string) (*Job, error) {
	job := o.newJob(sourceRoot, destinationRoot)
	log := o.deps.Logger.With("job_id", job.ID)

	if err := o.plan(ctx, job, log); err != nil {
		return o.fail(job, log, err)
	}
	job.FinishedAt = o.deps.Now()
	return job, nil
}

func (o *Orchestrator) newJob(sourceRoot, destinationRoot string) *Job {
	job := &Job{
		ID:              o.deps.NewID(),
		SourceRoot:      sourceRoot,
		DestinationRoot: destinationRoot,
		Phase:           PhasePlanned,
		History:         []Phase{PhasePlanned},
		StartedAt:       o.deps.Now(),
	}
	if o.cfg.Container != nil {
		job.ContainerPath = o.cfg.Container.Path
	}
	return job
}

func (o *Orchestrator) plan(ctx context.Context, job *Job, log logger.Logger) error {
	log.PhaseStart(string(PhasePlanned), "source", job.SourceRoot, "destination", job.DestinationRoot)

	if err := o.checkDestination(job); err != nil {
		return err
	}

	src, err := fingerprint.Take(ctx, job.SourceRoot, o.cfg.Fingerprint)
	if err != nil {
		return preconditionError("fingerprint source", err)
	}
	job.SourceFingerprint = src

	size, err := o.deps.FS.DirSize(ctx, job.SourceRoot)
	if err != nil {
		return preconditionError("measure source", err)
	}

	target := job.DestinationRoot
	if o.cfg.Container != nil {
		target = o.cfg.Container.Path
	}
	available, err := o.deps.FS.Available(target)
	if err != nil {
		return preconditionError("query free space", err)
	}

	plan := capacity.Compute(size, available, o.cfg.OverheadBytes, o.cfg.Margin)
	job.Plan = &plan
	if err := plan.Err(); err != nil {
		return &Error{Kind: KindCapacity, Op: "plan", Err: err, Plan: &plan}
	}
	if o.cfg.Container != nil {
		job.ContainerSize = capacity.ContainerSize(size, o.cfg.OverheadBytes, o.cfg.Container.AllocationUnit)
	}

	log.PhaseComplete(string(PhasePlanned),
		"files", src.Len(),
		"source_bytes", size,
		"required_bytes", plan.RequiredBytes,
		"available_bytes", plan.AvailableBytes,
	)
	return nil
}

// checkDestination refuses destinations that hold anything. A non-empty
// destination is indistinguishable from the leftovers of a killed run, and
// rollback would delete whatever is there.
func (o *Orchestrator) checkDestination(job *Job) error {
	if err := checkDisjoint(job.SourceRoot, job.DestinationRoot); err != nil {
		return preconditionError("check destination", err)
	}

	if o.cfg.Container != nil {
		exists, err := fsinfo.Exists(job.ContainerPath)
		if err != nil {
			return preconditionError("check container", err)
		}
		if exists {
			return preconditionError("check container", fmt.Errorf("%s already exists", job.ContainerPath))
		}
	}

	empty, n, err := fsinfo.IsEmptyDir(job.DestinationRoot)
	if err != nil {
		return preconditionError("check destination", err)
	}
	if !empty {
		return preconditionError("check destination", fmt.Errorf("%s is not empty (%d entries)", job.DestinationRoot, n))
	}
	return nil
}

func checkDisjoint(sourceRoot, destinationRoot string) error {
	src, err := filepath.Abs(sourceRoot)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(destinationRoot)
	if err != nil {
		return err
	}
	if within(dst, src) || within(src, dst) {
		return fmt.Errorf("source %s and destination %s overlap", sourceRoot, destinationRoot)
	}
	return nil
}

func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (o *Orchestrator) provision(ctx context.Context, job *Job, log logger.Logger) error {
	c := o.cfg.Container
	log.PhaseStart(string(PhaseProvisioned),
		"container", c.Path,
		"size_bytes", job.ContainerSize,
		"password_present", c.Credentials.HasPassword(),
		"keyfiles", len(c.Credentials.Keyfiles),
	)

	if err := o.deps.Containers.Create(ctx, c.Path, job.ContainerSize, c.Credentials); err != nil {
		o.discardContainer(job, log)
		return &Error{Kind: KindProvisioning, Op: "create container", Err: err}
	}
	if err := o.deps.Containers.Mount(ctx, c.Path, job.DestinationRoot, c.Credentials); err != nil {
		o.discardContainer(job, log)
		return &Error{Kind: KindProvisioning, Op: "mount container", Err: err}
	}
	if err := job.advance(PhaseProvisioned); err != nil {
		return err
	}

	log.PhaseComplete(string(PhaseProvisioned), "mount_point", job.DestinationRoot)
	return nil
}

// discardContainer deletes a backing file left by a failed provisioning step.
func (o *Orchestrator) discardContainer(job *Job, log logger.Logger) {
	if err := removeFile(job.ContainerPath); err != nil {
		log.Error("discard container", job.ContainerPath, err)
		job.RollbackErrors = append(job.RollbackErrors, err)
	}
}

func (o *Orchestrator) copy(ctx context.Context, job *Job, log logger.Logger) error {
	log.PhaseStart(string(PhaseCopied), "source", job.SourceRoot, "destination", job.DestinationRoot)
	start := o.deps.Now()

	if err := o.deps.Copier.Copy(ctx, job.SourceRoot, job.DestinationRoot, o.cfg.Fingerprint.Filter()); err != nil {
		return &Error{Kind: KindCopy, Op: "copy", Err: err}
	}
	if err := job.advance(PhaseCopied); err != nil {
		return err
	}

	log.PhaseComplete(string(PhaseCopied), "duration", o.deps.Now().Sub(start).Round(time.Millisecond))
	return nil
}

func (o *Orchestrator) verify(ctx context.Context, job *Job, log logger.Logger) error {
	log.PhaseStart(string(PhaseVerified), "destination", job.DestinationRoot)

	dst, err := fingerprint.Take(ctx, job.DestinationRoot, o.cfg.Fingerprint)
	if err != nil {
		return &Error{Kind: KindVerification, Op: "fingerprint destination", Err: err}
	}
	job.DestinationFingerprint = dst

	report := diff.Compare(job.SourceFingerprint, dst)
	job.Divergence = &report
	if err := job.advance(PhaseVerified); err != nil {
		return err
	}

	for _, p := range report.Missing {
		log.ItemProcessed(string(PhaseVerified), p, "missing")
	}
	for _, p := range report.Extra {
		log.ItemProcessed(string(PhaseVerified), p, "extra")
	}
	for _, m := range report.Mismatched {
		log.ItemProcessed(string(PhaseVerified), m.Path, "mismatched")
	}

	if !report.IsClean() {
		return &Error{
			Kind:   KindVerification,
			Op:     "compare",
			Err:    fmt.Errorf("destination diverges from source: %s", report.Summary()),
			Report: &report,
		}
	}

	log.PhaseComplete(string(PhaseVerified), "matched", report.Matched)
	return nil
}

func (o *Orchestrator) commit(ctx context.Context, job *Job, log logger.Logger) (*Job, error) {
	if o.cfg.Container != nil {
		// The data is verified; a failed unmount does not undo that.
		if err := o.deps.Containers.Unmount(context.WithoutCancel(ctx), job.DestinationRoot); err != nil {
			job.Warnings = append(job.Warnings, fmt.Sprintf("unmount %s: %v", job.DestinationRoot, err))
			log.Warn("verified container could not be unmounted", "mount_point", job.DestinationRoot, "error", err)
		}
	}
	if err := job.advance(PhaseCommitted); err != nil {
		return o.finish(job, log, err)
	}
	return o.finish(job, log, nil)
}

// rollback undoes the destination side effects of a job. Cleanup failures
// are recorded on the job; cause stays the returned error.
func (o *Orchestrator) rollback(ctx context.Context, job *Job, log logger.Logger, cause error) (*Job, error) {
	ctx = context.WithoutCancel(ctx)
	log.PhaseStart(string(PhaseRolledBack), "from", string(job.Phase), "cause", cause)

	if o.cfg.Container != nil {
		if err := o.deps.Containers.Unmount(ctx, job.DestinationRoot); err != nil {
			log.Error("unmount", job.DestinationRoot, err)
			job.RollbackErrors = append(job.RollbackErrors, fmt.Errorf("unmount %s: %w", job.DestinationRoot, err))
		}
		if err := removeFile(job.ContainerPath); err != nil {
			log.Error("remove container", job.ContainerPath, err)
			job.RollbackErrors = append(job.RollbackErrors, err)
		}
	} else {
		job.RollbackErrors = append(job.RollbackErrors, purge(job.DestinationRoot, o.cfg.PurgeConcurrency, log)...)
	}

	if err := job.advance(PhaseRolledBack); err != nil {
		cause = errors.Join(cause, err)
	}
	log.PhaseComplete(string(PhaseRolledBack), "cleanup_errors", len(job.RollbackErrors))
	return o.finish(job, log, cause)
}

func (o *Orchestrator) fail(job *Job, log logger.Logger, cause error) (*Job, error) {
	if err := job.advance(PhaseFailed); err != nil {
		cause = errors.Join(cause, err)
	}
	return o.finish(job, log, cause)
}

func (o *Orchestrator) finish(job *Job, log logger.Logger, err error) (*Job, error) {
	job.FinishedAt = o.deps.Now()
	job.Err = err
	if err != nil {
		log.Error(string(job.Phase), job.DestinationRoot, err)
		return job, err
	}
	log.PhaseComplete(string(job.Phase),
		"files", job.SourceFingerprint.Len(),
		"duration", job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond),
	)
	return job, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
