package repair

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/ports"
)

func nowUTCString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func newID() string {
	return uuid.NewString()
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

// ProjectionFromRecords rebuilds the lightweight aggregate seed from stored
// rows: identity fields plus the incrementally maintained projection
// columns. The last quality result is not carried here; callers that need
// it replay the timeline.
func ProjectionFromRecords(job ports.JobRecord, assignments []ports.AssignmentRecord) domainrepair.Aggregate {
	agg := domainrepair.Aggregate{
		JobID:              job.JobID,
		CustomerRef:        job.CustomerRef,
		DeviceMeta:         json.RawMessage(job.DeviceMetaJSON),
		Status:             domainrepair.Status(job.Status),
		Milestone:          job.Milestone,
		Progress:           job.Progress,
		ReworkCount:        job.ReworkCount,
		EstimatedCostCents: job.EstimatedCostCents,
		Seq:                job.CurrentSeq,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
	for _, a := range assignments {
		agg.Assignments = append(agg.Assignments, domainrepair.Assignment{
			TechnicianID: a.TechnicianID,
			IsPrimary:    a.IsPrimary,
			AssignedAt:   a.AssignedAt,
			UnassignedAt: derefString(a.UnassignedAt),
		})
	}
	return agg
}

// EventFromRecord maps a stored timeline row back to the domain event.
func EventFromRecord(rec ports.TimelineEventRecord) (domainrepair.Event, error) {
	kind, err := domainrepair.ParseEventKind(rec.Kind)
	if err != nil {
		return domainrepair.Event{}, err
	}
	return domainrepair.Event{
		EventID:   rec.EventID,
		JobID:     rec.JobID,
		Seq:       rec.Seq,
		Kind:      kind,
		Actor:     rec.Actor,
		Payload:   json.RawMessage(rec.PayloadJSON),
		CreatedAt: rec.CreatedAt,
	}, nil
}

func requireField(value string, name string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", invalidCommandf("%s is required", name)
	}
	return trimmed, nil
}
