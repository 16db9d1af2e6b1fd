package repair

import (
	"context"

	domainrepair "repairtrack/internal/domain/repair"
)

// ChangeStatus submits a caller-chosen status transition. Transitions out
// of quality_check (other than cancellation) belong to the quality gate and
// are rejected here.
func (s *Service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	target, err := domainrepair.ParseStatus(input.TargetStatus)
	if err != nil {
		return Result{}, err
	}
	if input.ProgressOverride != nil && (*input.ProgressOverride < 0 || *input.ProgressOverride > 100) {
		return Result{}, invalidCommandf("progress override must be within 0..100")
	}

	return s.submit(ctx, input.JobID, func(agg domainrepair.Aggregate) ([]eventDraft, error) {
		if err := domainrepair.ValidateTransition(agg.Status, target); err != nil {
			return nil, err
		}
		return []eventDraft{{
			Kind:  domainrepair.EventStatusChange,
			Actor: actor,
			Payload: domainrepair.StatusChangePayload{
				From:             agg.Status,
				To:               target,
				Note:             input.Note,
				ProgressOverride: input.ProgressOverride,
			},
		}}, nil
	})
}
