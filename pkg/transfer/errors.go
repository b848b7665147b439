package transfer

import (
	"errors"
	"fmt"

	"github.com/yuya-takeyama/strict-vault-sync/pkg/capacity"
	"github.com/yuya-takeyama/strict-vault-sync/pkg/diff"
)

// Kind classifies why a job did not commit.
type Kind string

const (
	// KindPrecondition: missing or empty source, unusable destination, absent
	// credentials. Nothing was touched.
	KindPrecondition Kind = "PRECONDITION"
	// KindCapacity: the destination is too small. Nothing was touched.
	KindCapacity Kind = "CAPACITY"
	// KindProvisioning: the container could not be created or mounted.
	KindProvisioning Kind = "PROVISIONING"
	// KindCopy: the copy collaborator failed. The job rolled back.
	KindCopy Kind = "COPY"
	// KindVerification: the destination does not match the source. The job
	// rolled back.
	KindVerification Kind = "VERIFICATION"
	// KindInternal: a bug, such as an illegal phase transition.
	KindInternal Kind = "INTERNAL"
)

// Sentinels for errors.Is.
var (
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrCapacity     = &Error{Kind: KindCapacity}
	ErrProvisioning = &Error{Kind: KindProvisioning}
	ErrCopy         = &Error{Kind: KindCopy}
	ErrVerification = &Error{Kind: KindVerification}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Error is returned by Orchestrator.Run for every outcome other than commit.
type Error struct {
	Kind Kind
	Op   string
	Err  error
	// Report is set for verification failures that got as far as comparing.
	Report *diff.Report
	// Plan is set for capacity failures.
	Plan *capacity.Plan
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func preconditionError(op string, err error) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}
