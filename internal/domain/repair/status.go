package repair

import (
	"fmt"
	"strings"
)

// Status is the formal state-machine status of a repair job. It is distinct
// from the milestone label, which only drives the human-facing progress
// percentage.
type Status string

const (
	StatusReceived       Status = "received"
	StatusDiagnosed      Status = "diagnosed"
	StatusPartsOrdered   Status = "parts_ordered"
	StatusInRepair       Status = "in_repair"
	StatusQualityCheck   Status = "quality_check"
	StatusReadyForPickup Status = "ready_for_pickup"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

// forwardSuccessor is the linear happy-path chain. The only backward edge,
// quality_check -> in_repair, is not listed here: it is reachable
// exclusively through the quality gate.
var forwardSuccessor = map[Status]Status{
	StatusReceived:       StatusDiagnosed,
	StatusDiagnosed:      StatusPartsOrdered,
	StatusPartsOrdered:   StatusInRepair,
	StatusInRepair:       StatusQualityCheck,
	StatusQualityCheck:   StatusReadyForPickup,
	StatusReadyForPickup: StatusCompleted,
}

var allStatuses = map[Status]struct{}{
	StatusReceived:       {},
	StatusDiagnosed:      {},
	StatusPartsOrdered:   {},
	StatusInRepair:       {},
	StatusQualityCheck:   {},
	StatusReadyForPickup: {},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

func ParseStatus(raw string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := allStatuses[candidate]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidCommand, raw)
	}
	return candidate, nil
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ValidateTransition decides whether a caller-requested status change is
// legal. Transitions out of quality_check (other than cancellation) are the
// quality gate's to make, so they are rejected here even when forward.
func ValidateTransition(current, attempted Status) error {
	if current.IsTerminal() {
		return &TransitionRejectedError{Current: current, Attempted: attempted}
	}
	if attempted == StatusCancelled {
		return nil
	}
	if current == StatusQualityCheck {
		return fmt.Errorf("%w (attempted %s)", ErrQualityCheckRequired, attempted)
	}
	if forwardSuccessor[current] == attempted {
		return nil
	}
	return &TransitionRejectedError{Current: current, Attempted: attempted}
}
