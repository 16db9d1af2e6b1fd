package repair

import (
	"context"
	"encoding/json"
	"errors"

	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/ports"
	"repairtrack/internal/transport/channel"
)

// Service is the command gateway: the only entry point through which new
// facts enter a job's timeline. Reads bypass it conceptually but are served
// here too for convenience.
type Service struct {
	repo  ports.RepairRepository
	uow   ports.UnitOfWork
	cache ports.Cache
	bus   *channel.Bus
	locks *jobLocks
}

// NewService wires the command gateway with its repository, transaction
// boundary, optional cache and optional live-event bus.
func NewService(repo ports.RepairRepository, uow ports.UnitOfWork, cache ports.Cache, bus *channel.Bus) *Service {
	return &Service{
		repo:  repo,
		uow:   uow,
		cache: cache,
		bus:   bus,
		locks: newJobLocks(defaultLockTimeout),
	}
}

type CreateJobInput struct {
	CustomerRef        string
	DeviceMeta         json.RawMessage
	EstimatedCostCents int64
	Actor              string
}

type ChangeStatusInput struct {
	JobID            string
	ActorID          string
	TargetStatus     string
	Note             string
	ProgressOverride *int
}

type AddNoteInput struct {
	JobID     string
	ActorID   string
	Text      string
	IsPrivate bool
}

type AddPhotoInput struct {
	JobID    string
	ActorID  string
	URL      string
	Category string
}

type SubmitQualityCheckInput struct {
	JobID           string
	ActorID         string
	Passed          bool
	Score           float64
	Issues          []string
	Recommendations []string
}

type AssignTechnicianInput struct {
	JobID        string
	ActorID      string
	TechnicianID string
	IsPrimary    bool
}

type UnassignTechnicianInput struct {
	JobID        string
	ActorID      string
	TechnicianID string
}

// Result reports the accepted command: the sequence number of the last
// appended event and the refreshed projection the caller can rely on.
type Result struct {
	JobID     string
	Seq       uint64
	Status    domainrepair.Status
	Milestone string
	Progress  int
	Rework    int
	EventIDs  []string
}

func (s *Service) guard(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.repo == nil {
		return errors.New("repair repository is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func cacheJobStatusKey(jobID string) string {
	return "job_status:" + jobID
}
