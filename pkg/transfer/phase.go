package transfer

import "fmt"

// Phase is the position of a Job in the transfer state machine.
type Phase string

const (
	PhasePlanned     Phase = "planned"
	PhaseProvisioned Phase = "provisioned"
	PhaseCopied      Phase = "copied"
	PhaseVerified    Phase = "verified"
	PhaseCommitted   Phase = "committed"
	PhaseRolledBack  Phase = "rolled_back"
	// PhaseFailed ends a job that stopped before the destination was touched,
	// so there was nothing to roll back.
	PhaseFailed Phase = "failed"
)

var transitions = map[Phase][]Phase{
	PhasePlanned:     {PhaseProvisioned, PhaseCopied, PhaseRolledBack, PhaseFailed},
	PhaseProvisioned: {PhaseCopied, PhaseRolledBack},
	PhaseCopied:      {PhaseVerified, PhaseRolledBack},
	PhaseVerified:    {PhaseCommitted, PhaseRolledBack},
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseCommitted || p == PhaseRolledBack || p == PhaseFailed
}

func (p Phase) canAdvanceTo(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// advance moves the job forward, refusing anything the state machine does
// not allow.
func (j *Job) advance(next Phase) error {
	if !j.Phase.canAdvanceTo(next) {
		return &Error{
			Kind: KindInternal,
			Op:   "advance",
			Err:  fmt.Errorf("illegal transition %s -> %s", j.Phase, next),
		}
	}
	j.Phase = next
	j.History = append(j.History, next)
	return nil
}
