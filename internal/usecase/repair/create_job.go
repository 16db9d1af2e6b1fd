package repair

import (
	"context"
	"encoding/json"
	"log/slog"

	"repairtrack/internal/bootstrap/logging"
	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/ports"
)

// CreateJob registers a new repair job: a zero-state row plus the initial
// status_change event into "received", appended through the same serialized
// write path every later command uses.
func (s *Service) CreateJob(ctx context.Context, input CreateJobInput) (string, Result, error) {
	if err := s.guard(ctx); err != nil {
		return "", Result{}, err
	}

	customerRef, err := requireField(input.CustomerRef, "customer ref")
	if err != nil {
		return "", Result{}, err
	}
	actor, err := requireField(input.Actor, "actor")
	if err != nil {
		return "", Result{}, err
	}
	if input.EstimatedCostCents < 0 {
		return "", Result{}, invalidCommandf("estimated cost must not be negative")
	}

	deviceMeta := input.DeviceMeta
	if len(deviceMeta) == 0 {
		deviceMeta = json.RawMessage("{}")
	}
	if !json.Valid(deviceMeta) {
		return "", Result{}, invalidCommandf("device meta must be valid JSON")
	}

	jobID := newID()
	now := nowUTCString()

	// Row and initial event commit together: a job row whose status is not
	// the fold of any event must never be observable, even briefly.
	prepare := func(txCtx context.Context) error {
		return s.repo.CreateJob(txCtx, ports.JobRecord{
			JobID:              jobID,
			CustomerRef:        customerRef,
			DeviceMetaJSON:     string(deviceMeta),
			Status:             string(domainrepair.StatusReceived),
			Milestone:          domainrepair.MilestoneForProgress(0),
			EstimatedCostCents: input.EstimatedCostCents,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	res, err := s.submitWith(ctx, jobID, prepare, func(agg domainrepair.Aggregate) ([]eventDraft, error) {
		return []eventDraft{{
			Kind:  domainrepair.EventStatusChange,
			Actor: actor,
			Payload: domainrepair.StatusChangePayload{
				To: domainrepair.StatusReceived,
			},
		}}, nil
	})
	if err != nil {
		return "", Result{}, err
	}

	logging.Info(ctx, "repair job created",
		slog.String("job_id", jobID),
		slog.String("customer_ref", customerRef),
	)
	return jobID, res, nil
}
