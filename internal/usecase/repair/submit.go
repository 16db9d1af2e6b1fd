package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"repairtrack/internal/bootstrap/logging"
	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
)

func invalidCommandf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domainrepair.ErrInvalidCommand, fmt.Sprintf(format, args...))
}

type eventDraft struct {
	Kind    domainrepair.EventKind
	Actor   string
	Payload any
}

// buildFunc inspects the current projection and returns the events the
// command wants appended, or an error refusing the command. It must not
// touch storage.
type buildFunc func(agg domainrepair.Aggregate) ([]eventDraft, error)

// submit is the serialized write path shared by every command: acquire the
// per-job lock, load the projection, let the command build its events, fold
// them, and persist events plus the refreshed projection atomically. The
// projection write carries the optimistic current_seq check so a racing
// writer that slipped past the lock (another process) still loses cleanly
// with a ConflictError.
func (s *Service) submit(ctx context.Context, jobID string, build buildFunc) (Result, error) {
	return s.submitWith(ctx, jobID, nil, build)
}

// submitWith additionally runs prepare inside the transaction before the
// projection is loaded. CreateJob uses it to insert the job row and its
// first event atomically: the row must never be observable without the
// event it claims to be the fold of.
func (s *Service) submitWith(ctx context.Context, jobID string, prepare func(txCtx context.Context) error, build buildFunc) (Result, error) {
	if err := s.guard(ctx); err != nil {
		return Result{}, err
	}

	release, err := s.locks.acquire(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	defer release()

	var (
		res       Result
		published []domainrepair.Event
		integrity *domainrepair.IntegrityError
	)

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if prepare != nil {
			if err := prepare(txCtx); err != nil {
				return err
			}
		}

		job, err := s.repo.GetJob(txCtx, jobID)
		if err != nil {
			return err
		}
		if job.Halted {
			return domainrepair.ErrJobHalted
		}

		assignments, err := s.repo.ListAssignments(txCtx, jobID)
		if err != nil {
			return err
		}
		agg := ProjectionFromRecords(job, assignments)

		drafts, err := build(agg)
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return invalidCommandf("command produced no events")
		}

		now := nowUTCString()
		records := make([]ports.TimelineEventRecord, 0, len(drafts))
		events := make([]domainrepair.Event, 0, len(drafts))
		eventIDs := make([]string, 0, len(drafts))
		seq := agg.Seq

		for _, draft := range drafts {
			seq++
			payload, err := domainrepair.MarshalPayload(draft.Payload)
			if err != nil {
				return err
			}
			ev := domainrepair.Event{
				EventID:   newID(),
				JobID:     jobID,
				Seq:       seq,
				Kind:      draft.Kind,
				Actor:     draft.Actor,
				Payload:   payload,
				CreatedAt: now,
			}
			if err := agg.Apply(ev); err != nil {
				var ie *domainrepair.IntegrityError
				if errors.As(err, &ie) {
					integrity = ie
				}
				return err
			}
			events = append(events, ev)
			eventIDs = append(eventIDs, ev.EventID)
			records = append(records, ports.TimelineEventRecord{
				EventID:     ev.EventID,
				JobID:       ev.JobID,
				Seq:         ev.Seq,
				Kind:        string(ev.Kind),
				PayloadJSON: string(ev.Payload),
				Actor:       ev.Actor,
				CreatedAt:   ev.CreatedAt,
			})
		}

		if err := s.repo.AppendEvents(txCtx, records); err != nil {
			return err
		}

		won, err := s.repo.UpdateProjection(txCtx, ports.JobProjectionUpdate{
			JobID:       jobID,
			ExpectedSeq: job.CurrentSeq,
			NewSeq:      seq,
			Status:      string(agg.Status),
			Milestone:   agg.Milestone,
			Progress:    agg.Progress,
			ReworkCount: agg.ReworkCount,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}
		if !won {
			return &domainrepair.ConflictError{JobID: jobID, ExpectedSeq: job.CurrentSeq}
		}

		if err := s.applyAssignmentSideEffects(txCtx, events, now); err != nil {
			return err
		}

		res = Result{
			JobID:     jobID,
			Seq:       seq,
			Status:    agg.Status,
			Milestone: agg.Milestone,
			Progress:  agg.Progress,
			Rework:    agg.ReworkCount,
			EventIDs:  eventIDs,
		}
		published = events
		return nil
	})
	if err != nil {
		if integrity != nil {
			s.haltJob(ctx, jobID, integrity)
		}
		return Result{}, err
	}

	s.publishEvents(ctx, published)
	s.setCacheBestEffort(ctx, cacheJobStatusKey(jobID), string(res.Status))
	return res, nil
}

// applyAssignmentSideEffects keeps the technician_assignments table in step
// with the fold: rows are only ever touched here, as a consequence of
// assignment events.
func (s *Service) applyAssignmentSideEffects(txCtx context.Context, events []domainrepair.Event, now string) error {
	for _, ev := range events {
		switch ev.Kind {
		case domainrepair.EventTechnicianAssigned:
			p, err := ev.Assignment()
			if err != nil {
				return err
			}
			if p.IsPrimary {
				if err := s.repo.DemoteOpenPrimaries(txCtx, ev.JobID, p.TechnicianID); err != nil {
					return err
				}
			}
			if err := s.repo.CloseAssignment(txCtx, ev.JobID, p.TechnicianID, now); err != nil {
				return err
			}
			if err := s.repo.OpenAssignment(txCtx, ports.AssignmentRecord{
				JobID:        ev.JobID,
				TechnicianID: p.TechnicianID,
				IsPrimary:    p.IsPrimary,
				AssignedAt:   now,
			}); err != nil {
				return err
			}

		case domainrepair.EventTechnicianUnassigned:
			p, err := ev.Assignment()
			if err != nil {
				return err
			}
			if err := s.repo.CloseAssignment(txCtx, ev.JobID, p.TechnicianID, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// haltJob records a fatal fold integrity violation: the job stops accepting
// writes until someone inspects the timeline.
func (s *Service) haltJob(ctx context.Context, jobID string, cause *domainrepair.IntegrityError) {
	haltCtx := context.WithoutCancel(ctx)
	logging.Error(haltCtx, "timeline integrity violation, halting job",
		slog.String("job_id", jobID),
		slog.Any("err", errs.Loggable(cause)),
	)
	if err := s.repo.MarkJobHalted(haltCtx, jobID, nowUTCString()); err != nil {
		logging.Error(haltCtx, "mark job halted failed",
			slog.String("job_id", jobID),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

func (s *Service) publishEvents(ctx context.Context, events []domainrepair.Event) {
	if s.bus == nil {
		return
	}
	for _, ev := range events {
		if err := s.bus.Publish(ctx, ev); err != nil {
			logging.Warn(ctx, "publish timeline event failed",
				slog.String("job_id", ev.JobID),
				slog.Uint64("seq", ev.Seq),
				slog.Any("err", errs.Loggable(err)),
			)
		}
	}
}
