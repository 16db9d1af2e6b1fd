package repair

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCommand        = errors.New("invalid command")
	ErrJobHalted             = errors.New("repair job halted pending manual inspection")
	ErrTechnicianNotAssigned = errors.New("technician is not assigned to this job")
	ErrQualityCheckRequired  = errors.New("quality check result required while in quality_check status")
)

// TransitionRejectedError reports a state machine refusal. It carries both
// statuses so callers can explain the rejection to an end user.
type TransitionRejectedError struct {
	Current   Status
	Attempted Status
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition rejected: %s -> %s", e.Current, e.Attempted)
}

// ConflictError signals a lost optimistic-concurrency race. Safe to retry
// with refreshed state.
type ConflictError struct {
	JobID       string
	ExpectedSeq uint64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent write conflict on job %s (expected seq %d)", e.JobID, e.ExpectedSeq)
}

// IntegrityError is a fatal data-integrity violation found while folding a
// job's timeline: a gap, an out-of-order event, or an undecodable payload.
// Writes to the job halt until manual inspection.
type IntegrityError struct {
	JobID  string
	Seq    uint64
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("timeline integrity violation on job %s at seq %d: %s", e.JobID, e.Seq, e.Reason)
}
