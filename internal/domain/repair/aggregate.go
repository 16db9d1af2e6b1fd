package repair

import (
	"encoding/json"
	"fmt"
)

// Assignment is one technician's engagement on a job. UnassignedAt is empty
// while the assignment is open.
type Assignment struct {
	TechnicianID string
	IsPrimary    bool
	AssignedAt   string
	UnassignedAt string
}

// Aggregate is the current-state projection of one repair job. It is always
// exactly the fold of the job's timeline events in sequence order; nothing
// mutates it except Apply.
type Aggregate struct {
	JobID              string
	CustomerRef        string
	DeviceMeta         json.RawMessage
	Status             Status
	Milestone          string
	Progress           int
	ReworkCount        int
	EstimatedCostCents int64
	Seq                uint64
	Assignments        []Assignment
	LastQuality        *QualityResult
	CreatedAt          string
	UpdatedAt          string
}

// NewAggregate seeds the zero-state projection before the first event.
func NewAggregate(jobID, customerRef string, deviceMeta json.RawMessage, estimatedCostCents int64) Aggregate {
	return Aggregate{
		JobID:              jobID,
		CustomerRef:        customerRef,
		DeviceMeta:         deviceMeta,
		EstimatedCostCents: estimatedCostCents,
	}
}

// Replay rebuilds the projection from scratch. Incremental Apply and a full
// Replay over the same events must produce identical results.
func Replay(seed Aggregate, events []Event) (Aggregate, error) {
	agg := seed
	for _, ev := range events {
		if err := agg.Apply(ev); err != nil {
			return Aggregate{}, err
		}
	}
	return agg, nil
}

// Apply folds one event into the projection. Any sequencing or payload
// problem is an IntegrityError: the caller must halt further writes to the
// job rather than guess.
func (a *Aggregate) Apply(ev Event) error {
	if ev.JobID != a.JobID {
		return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: fmt.Sprintf("event belongs to job %s", ev.JobID)}
	}
	if ev.Seq != a.Seq+1 {
		return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: fmt.Sprintf("expected seq %d", a.Seq+1)}
	}

	switch ev.Kind {
	case EventStatusChange:
		p, err := ev.StatusChange()
		if err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}
		if a.Seq > 0 && p.From != a.Status {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: fmt.Sprintf("status change from %s but projection is %s", p.From, a.Status)}
		}
		a.applyStatusChange(p)

	case EventQualityCheck:
		p, err := ev.QualityCheck()
		if err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}
		a.LastQuality = &QualityResult{
			Passed:          p.Passed,
			Score:           p.Score,
			Issues:          p.Issues,
			Recommendations: p.Recommendations,
			Seq:             ev.Seq,
		}
		if !p.Passed {
			a.ReworkCount++
		}

	case EventNoteAdded:
		if _, err := ev.Note(); err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}

	case EventPhotoAdded:
		if _, err := ev.Photo(); err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}

	case EventTechnicianAssigned:
		p, err := ev.Assignment()
		if err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}
		a.applyAssigned(p, ev.CreatedAt)

	case EventTechnicianUnassigned:
		p, err := ev.Assignment()
		if err != nil {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: err.Error()}
		}
		if !a.closeAssignment(p.TechnicianID, ev.CreatedAt) {
			return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: fmt.Sprintf("technician %s has no open assignment", p.TechnicianID)}
		}

	default:
		return &IntegrityError{JobID: a.JobID, Seq: ev.Seq, Reason: fmt.Sprintf("unknown event kind %q", ev.Kind)}
	}

	a.Seq = ev.Seq
	a.UpdatedAt = ev.CreatedAt
	if a.CreatedAt == "" {
		a.CreatedAt = ev.CreatedAt
	}
	return nil
}

func (a *Aggregate) applyStatusChange(p StatusChangePayload) {
	a.Status = p.To

	if p.To == StatusCancelled {
		// Cancellation freezes progress; the work is not "more complete".
		return
	}

	target, ok := ProgressForStatus(p.To)
	if !ok {
		target = a.Progress
	}
	if p.ProgressOverride != nil {
		target = clampProgress(*p.ProgressOverride)
	}

	if p.ViaQualityGate && p.To == StatusInRepair {
		// Rework is the only path on which progress may decrease.
		a.Progress = target
	} else if target > a.Progress {
		a.Progress = target
	}
	a.Milestone = MilestoneForProgress(a.Progress)
}

// applyAssigned keeps the invariant that at most one open assignment per
// job is primary: assigning a new primary demotes the previous one. A
// re-assignment of an already assigned technician closes the old engagement
// and opens a fresh one.
func (a *Aggregate) applyAssigned(p AssignmentPayload, at string) {
	if p.IsPrimary {
		for i := range a.Assignments {
			if a.Assignments[i].UnassignedAt == "" {
				a.Assignments[i].IsPrimary = false
			}
		}
	}

	a.closeAssignment(p.TechnicianID, at)
	a.Assignments = append(a.Assignments, Assignment{
		TechnicianID: p.TechnicianID,
		IsPrimary:    p.IsPrimary,
		AssignedAt:   at,
	})
}

func (a *Aggregate) closeAssignment(technicianID string, at string) bool {
	for i := range a.Assignments {
		if a.Assignments[i].TechnicianID == technicianID && a.Assignments[i].UnassignedAt == "" {
			a.Assignments[i].UnassignedAt = at
			a.Assignments[i].IsPrimary = false
			return true
		}
	}
	return false
}

// OpenAssignments returns assignments not yet closed.
func (a Aggregate) OpenAssignments() []Assignment {
	out := make([]Assignment, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		if as.UnassignedAt == "" {
			out = append(out, as)
		}
	}
	return out
}

func (a Aggregate) IsAssigned(technicianID string) bool {
	for _, as := range a.Assignments {
		if as.TechnicianID == technicianID && as.UnassignedAt == "" {
			return true
		}
	}
	return false
}

// PrimaryTechnician returns the open primary assignment, if any.
func (a Aggregate) PrimaryTechnician() (string, bool) {
	for _, as := range a.Assignments {
		if as.IsPrimary && as.UnassignedAt == "" {
			return as.TechnicianID, true
		}
	}
	return "", false
}
