// Package transfer runs a copy as a transaction: plan, provision, copy,
// verify, then either commit or roll back. A job only commits when the
// destination's fingerprint equals the source's.
package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/container"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fingerprint"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/fsinfo"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/logger"
)

// DefaultAllocationUnit rounds container sizes up to whole MiB.
const DefaultAllocationUnit = 1 << 20

// Config describes one kind of transfer. It holds everything the orchestrator
// needs; nothing is read from the environment.
type Config struct {
	// Fingerprint is used for both sides, so excludes and the hidden-file
	// policy apply symmetrically.
	Fingerprint fingerprint.Options

	OverheadBytes uint64
	Margin        capacity.Ratio

	// Container is nil for plain directory transfers.
	Container *ContainerConfig

	// PurgeConcurrency bounds parallel removal during rollback.
	PurgeConcurrency int
}

// ContainerConfig describes an encrypted container to create. The job's
// destination root is used as the mount point. Credentials are only required
// by Run; Plan never unlocks anything.
type ContainerConfig struct {
	Path           string
	AllocationUnit uint64
	Credentials    container.Credentials
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if err := c.Fingerprint.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fingerprint: %w", err))
	}
	if err := c.Margin.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("margin: %w", err))
	}
	if c.PurgeConcurrency < 0 {
		errs = append(errs, errors.New("purge concurrency must not be negative"))
	}
	if c.Container != nil {
		if c.Container.Path == "" {
			errs = append(errs, errors.New("container path is required"))
		}
		for _, k := range c.Container.Credentials.Keyfiles {
			if k == "" {
				errs = append(errs, errors.New("empty keyfile path"))
			}
		}
	}
	return errors.Join(errs...)
}

// Dependencies are the collaborators a job talks to.
type Dependencies struct {
	Copier copier.Copier
	// Containers is required when Config.Container is set.
	Containers container.Manager
	// FS defaults to fsinfo.New().
	FS fsinfo.Querier
	// Logger defaults to logger.NullLogger.
	Logger logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// Job is the record of one transfer. Only the orchestrator changes it.
type Job struct {
	ID              string
	SourceRoot      string
	DestinationRoot string
	ContainerPath   string
	Phase           Phase
	History         []Phase

	Plan          *capacity.Plan
	ContainerSize uint64

	SourceFingerprint      *fingerprint.Fingerprint
	DestinationFingerprint *fingerprint.Fingerprint
	Divergence             *diff.Report

	StartedAt  time.Time
	FinishedAt time.Time

	// Err is the primary error when the job did not commit.
	Err            error
	RollbackErrors []error
	Warnings       []string
}

// Committed reports whether the job ended in PhaseCommitted.
func (j *Job) Committed() bool {
	return j.Phase == PhaseCommitted
}

// Orchestrator runs transfer jobs.
type Orchestrator struct {
	cfg  Config
	deps Dependencies
}

// New validates cfg and fills in default dependencies.
func New(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transfer config: %w", err)
	}
	if deps.Copier == nil {
		return nil, errors.New("a copier is required")
	}
	if cfg.Container != nil {
		if deps.Containers == nil {
			return nil, errors.New("a container manager is required for container transfers")
		}
		if cfg.Container.AllocationUnit == 0 {
			c := *cfg.Container
			c.AllocationUnit = DefaultAllocationUnit
			cfg.Container = &c
		}
	}
	if cfg.PurgeConcurrency == 0 {
		cfg.PurgeConcurrency = 8
	}
	if deps.FS == nil {
		deps.FS = fsinfo.New()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NullLogger{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Orchestrator{cfg: cfg, deps: deps}, nil
}
