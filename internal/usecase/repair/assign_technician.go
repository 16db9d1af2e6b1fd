package repair

import (
	"context"

	domainrepair "repairtrack/internal/domain/repair"
)

// AssignTechnician records a technician joining the job. Assigning a new
// primary demotes the previous one (latest primary wins); the demotion is a
// pure fold consequence, no extra event is appended.
func (s *Service) AssignTechnician(ctx context.Context, input AssignTechnicianInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	technicianID, err := requireField(input.TechnicianID, "technician id")
	if err != nil {
		return Result{}, err
	}

	return s.submit(ctx, input.JobID, func(agg domainrepair.Aggregate) ([]eventDraft, error) {
		if agg.Status.IsTerminal() {
			return nil, invalidCommandf("job %s is %s, assignments are closed", agg.JobID, agg.Status)
		}
		return []eventDraft{{
			Kind:  domainrepair.EventTechnicianAssigned,
			Actor: actor,
			Payload: domainrepair.AssignmentPayload{
				TechnicianID: technicianID,
				IsPrimary:    input.IsPrimary,
			},
		}}, nil
	})
}

func (s *Service) UnassignTechnician(ctx context.Context, input UnassignTechnicianInput) (Result, error) {
	actor, err := requireField(input.ActorID, "actor")
	if err != nil {
		return Result{}, err
	}
	technicianID, err := requireField(input.TechnicianID, "technician id")
	if err != nil {
		return Result{}, err
	}

	return s.submit(ctx, input.JobID, func(agg domainrepair.Aggregate) ([]eventDraft, error) {
		if agg.Status.IsTerminal() {
			return nil, invalidCommandf("job %s is %s, assignments are closed", agg.JobID, agg.Status)
		}
		if !agg.IsAssigned(technicianID) {
			return nil, domainrepair.ErrTechnicianNotAssigned
		}
		return []eventDraft{{
			Kind:  domainrepair.EventTechnicianUnassigned,
			Actor: actor,
			Payload: domainrepair.AssignmentPayload{
				TechnicianID: technicianID,
			},
		}}, nil
	})
}
