package repair

import (
	"context"
	"encoding/json"
	"errors"

	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/transport/channel"
)

// GetJob rebuilds the aggregate by replaying the full timeline and
// cross-checks it against the incrementally maintained projection row. Any
// divergence is a fatal integrity violation and halts the job.
func (s *Service) GetJob(ctx context.Context, jobID string) (domainrepair.Aggregate, error) {
	if err := s.guard(ctx); err != nil {
		return domainrepair.Aggregate{}, err
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return domainrepair.Aggregate{}, err
	}

	records, err := s.repo.ListEvents(ctx, jobID, 0, 0)
	if err != nil {
		return domainrepair.Aggregate{}, err
	}

	events := make([]domainrepair.Event, 0, len(records))
	for _, rec := range records {
		ev, err := EventFromRecord(rec)
		if err != nil {
			ie := &domainrepair.IntegrityError{JobID: jobID, Seq: rec.Seq, Reason: err.Error()}
			s.haltJob(ctx, jobID, ie)
			return domainrepair.Aggregate{}, ie
		}
		events = append(events, ev)
	}

	seed := domainrepair.NewAggregate(jobID, job.CustomerRef, json.RawMessage(job.DeviceMetaJSON), job.EstimatedCostCents)
	agg, err := domainrepair.Replay(seed, events)
	if err != nil {
		var ie *domainrepair.IntegrityError
		if errors.As(err, &ie) {
			s.haltJob(ctx, jobID, ie)
		}
		return domainrepair.Aggregate{}, err
	}

	if agg.Seq != job.CurrentSeq || string(agg.Status) != job.Status {
		ie := &domainrepair.IntegrityError{
			JobID:  jobID,
			Seq:    agg.Seq,
			Reason: "replayed projection diverges from stored projection",
		}
		s.haltJob(ctx, jobID, ie)
		return domainrepair.Aggregate{}, ie
	}

	return agg, nil
}

// GetTimeline returns the ordered events with seq > fromSeq; callers page
// by passing the last seq they have seen.
func (s *Service) GetTimeline(ctx context.Context, jobID string, fromSeq uint64) ([]domainrepair.Event, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListEvents(ctx, jobID, fromSeq, 0)
	if err != nil {
		return nil, err
	}

	events := make([]domainrepair.Event, 0, len(records))
	for _, rec := range records {
		ev, err := EventFromRecord(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Subscribe opens a best-effort live feed of newly appended events for one
// job. Consumers reconcile with GetTimeline after a reconnect.
func (s *Service) Subscribe(ctx context.Context, jobID string) (*channel.Subscription, error) {
	if err := s.guard(ctx); err != nil {
		return nil, err
	}
	if s.bus == nil {
		return nil, errors.New("event bus is not configured")
	}

	if _, err := s.repo.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.bus.Subscribe(jobID), nil
}
