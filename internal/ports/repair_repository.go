package ports

import (
	"context"
	"errors"
)

var ErrJobNotFound = errors.New("repair job not found")

type JobRecord struct {
	JobID              string
	CustomerRef        string
	DeviceMetaJSON     string
	Status             string
	Milestone          string
	Progress           int
	ReworkCount        int
	EstimatedCostCents int64
	CurrentSeq         uint64
	Halted             bool
	CreatedAt          string
	UpdatedAt          string
}

type TimelineEventRecord struct {
	// RowID is the global append order across all jobs; zero on records
	// that have not been stored yet.
	RowID       uint64
	EventID     string
	JobID       string
	Seq         uint64
	Kind        string
	PayloadJSON string
	Actor       string
	CreatedAt   string
}

type AssignmentRecord struct {
	AssignmentID uint64
	JobID        string
	TechnicianID string
	IsPrimary    bool
	AssignedAt   string
	UnassignedAt *string
}

// JobProjectionUpdate persists the refreshed projection. The write is
// optimistic: it only lands if the stored current_seq still equals
// ExpectedSeq, which serializes concurrent appends per job.
type JobProjectionUpdate struct {
	JobID       string
	ExpectedSeq uint64
	NewSeq      uint64
	Status      string
	Milestone   string
	Progress    int
	ReworkCount int
	UpdatedAt   string
}

type RepairReadRepository interface {
	GetJob(ctx context.Context, jobID string) (JobRecord, error)
	// ListEvents returns events with seq > fromSeq in sequence order;
	// limit <= 0 means no limit.
	ListEvents(ctx context.Context, jobID string, fromSeq uint64, limit int) ([]TimelineEventRecord, error)
	// ListEventsAfter returns events across all jobs with row_id >
	// afterRowID in append order. The notification dispatcher cursors over
	// it to catch up on events appended while it was not listening.
	ListEventsAfter(ctx context.Context, afterRowID uint64, limit int) ([]TimelineEventRecord, error)
	ListAssignments(ctx context.Context, jobID string) ([]AssignmentRecord, error)
}

type RepairRepository interface {
	RepairReadRepository
	CreateJob(ctx context.Context, job JobRecord) error
	AppendEvents(ctx context.Context, events []TimelineEventRecord) error
	// UpdateProjection returns false when the optimistic check lost the
	// race (stored current_seq != ExpectedSeq); nothing is written then.
	UpdateProjection(ctx context.Context, update JobProjectionUpdate) (bool, error)
	MarkJobHalted(ctx context.Context, jobID string, updatedAt string) error
	OpenAssignment(ctx context.Context, assignment AssignmentRecord) error
	CloseAssignment(ctx context.Context, jobID string, technicianID string, unassignedAt string) error
	// DemoteOpenPrimaries clears the primary flag on every open assignment
	// except the named technician's.
	DemoteOpenPrimaries(ctx context.Context, jobID string, exceptTechnicianID string) error
}
