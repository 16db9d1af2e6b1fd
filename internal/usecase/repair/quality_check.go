package repair

import (
	"context"

	domainrepair "repairtrack/internal/domain/repair"
)

// SubmitQualityCheck records a quality result and lets the quality gate
// synthesize the resulting transition: forward to ready_for_pickup on pass,
// back to in_repair on fail. Both events land atomically with consecutive
// sequence numbers; callers never pick the target themselves.
func (s *Service) SubmitQualityCheck(ctx context.Context, input SubmitQualityCheckInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	if input.Score < 0 || input.Score > 10 {
		return Result{}, invalidCommandf("score must be within 0..10")
	}
	if !input.Passed && len(input.Issues) == 0 {
		return Result{}, invalidCommandf("a failing quality check requires at least one issue")
	}

	decision := domainrepair.EvaluateQualityCheck(input.Passed)

	return s.submit(ctx, input.JobID, func(agg domainrepair.Aggregate) ([]eventDraft, error) {
		if agg.Status != domainrepair.StatusQualityCheck {
			return nil, &domainrepair.TransitionRejectedError{
				Current:   agg.Status,
				Attempted: decision.Target,
			}
		}
		return []eventDraft{
			{
				Kind:  domainrepair.EventQualityCheck,
				Actor: actor,
				Payload: domainrepair.QualityCheckPayload{
					Passed:          input.Passed,
					Score:           input.Score,
					Issues:          input.Issues,
					Recommendations: input.Recommendations,
				},
			},
			{
				Kind:  domainrepair.EventStatusChange,
				Actor: actor,
				Payload: domainrepair.StatusChangePayload{
					From:           domainrepair.StatusQualityCheck,
					To:             decision.Target,
					ViaQualityGate: true,
				},
			},
		}, nil
	})
}
