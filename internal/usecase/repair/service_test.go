package repair

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "repairtrack/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "repairtrack/internal/infrastructure/persistence/sqlite/uow"
	"repairtrack/internal/ports"
	"repairtrack/internal/transport/channel"
)

type testCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newTestCache() *testCache {
	return &testCache{
		data: make(map[string]string),
	}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func setupServiceWithDB(t *testing.T) (*Service, *channel.Bus, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "repair.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(
		&model.Job{},
		&model.TimelineEvent{},
		&model.TechnicianAssignment{},
		&model.Notification{},
		&model.RepairKV{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	repo := sqliterepo.NewRepairRepository(db)
	uow := sqliteuow.NewUnitOfWork(db)
	bus := channel.NewBus(256, 16)
	return NewService(repo, uow, newTestCache(), bus), bus, db
}

func setupService(t *testing.T) *Service {
	t.Helper()
	svc, _, _ := setupServiceWithDB(t)
	return svc
}

func createJob(t *testing.T, svc *Service, ctx context.Context) string {
	t.Helper()

	jobID, res, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerRef: "cust-1",
		DeviceMeta:  []byte(`{"device":"laptop","serial":"SN-1"}`),
		Actor:       "front-desk",
	})
	if err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if res.Seq != 1 {
		t.Fatalf("CreateJob() seq = %d, want 1", res.Seq)
	}
	return jobID
}

func advanceTo(t *testing.T, svc *Service, ctx context.Context, jobID string, target domainrepair.Status) {
	t.Helper()

	path := []domainrepair.Status{
		domainrepair.StatusDiagnosed,
		domainrepair.StatusPartsOrdered,
		domainrepair.StatusInRepair,
		domainrepair.StatusQualityCheck,
	}
	for _, status := range path {
		if _, err := svc.ChangeStatus(ctx, ChangeStatusInput{
			JobID:        jobID,
			ActorID:      "tech-1",
			TargetStatus: string(status),
		}); err != nil {
			t.Fatalf("ChangeStatus(%s) error = %v", status, err)
		}
		if status == target {
			return
		}
	}
	t.Fatalf("advanceTo: %s is not on the forward path", target)
}

func TestCreateJobStartsTimelineAtReceived(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	jobID := createJob(t, svc, ctx)

	agg, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if agg.Status != domainrepair.StatusReceived {
		t.Fatalf("Status = %s, want received", agg.Status)
	}
	if agg.Seq != 1 {
		t.Fatalf("Seq = %d, want 1", agg.Seq)
	}
	if agg.Milestone != "assessment" {
		t.Fatalf("Milestone = %q, want assessment", agg.Milestone)
	}
	if agg.Progress != 5 {
		t.Fatalf("Progress = %d, want 5", agg.Progress)
	}

	events, err := svc.GetTimeline(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if len(events) != 1 || events[0].Seq != 1 || events[0].Kind != domainrepair.EventStatusChange {
		t.Fatalf("timeline = %+v, want single status_change at seq 1", events)
	}
}

func TestCreateJobValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, _, err := svc.CreateJob(ctx, CreateJobInput{Actor: "front-desk"}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("CreateJob(no customer) error = %v, want ErrInvalidCommand", err)
	}
	if _, _, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerRef: "cust-1",
		Actor:       "front-desk",
		DeviceMeta:  []byte(`{broken`),
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("CreateJob(bad meta) error = %v, want ErrInvalidCommand", err)
	}
	if _, _, err := svc.CreateJob(ctx, CreateJobInput{
		CustomerRef:        "cust-1",
		Actor:              "front-desk",
		EstimatedCostCents: -5,
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("CreateJob(negative cost) error = %v, want ErrInvalidCommand", err)
	}
}

// appendFailRepo refuses every event append so tests can observe what a
// failed write leaves behind.
type appendFailRepo struct {
	ports.RepairRepository
}

func (appendFailRepo) AppendEvents(context.Context, []ports.TimelineEventRecord) error {
	return errors.New("append refused")
}

func TestCreateJobRollsBackRowWhenAppendFails(t *testing.T) {
	_, _, db := setupServiceWithDB(t)
	repo := sqliterepo.NewRepairRepository(db)
	ctx := context.Background()

	broken := NewService(appendFailRepo{repo}, sqliteuow.NewUnitOfWork(db), newTestCache(), channel.NewBus(256, 16))
	if _, _, err := broken.CreateJob(ctx, CreateJobInput{
		CustomerRef: "cust-1",
		Actor:       "front-desk",
	}); err == nil {
		t.Fatalf("CreateJob() succeeded, want append failure")
	}

	// The row and the initial event commit in one transaction: a job row
	// whose status is the fold of no event must never survive a failed
	// create, or the next read would halt the job as corrupt.
	var jobs int64
	if err := db.Table("jobs").Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("jobs rows = %d, want 0 after rollback", jobs)
	}

	// A working service over the same database is unaffected.
	svc := NewService(repo, sqliteuow.NewUnitOfWork(db), newTestCache(), channel.NewBus(256, 16))
	jobID := createJob(t, svc, ctx)
	if agg, err := svc.GetJob(ctx, jobID); err != nil || agg.Seq != 1 {
		t.Fatalf("GetJob() after clean create = %+v, %v", agg, err)
	}
}

func TestChangeStatusAdvancesSequenceAndMilestone(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	res, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID:        jobID,
		ActorID:      "tech-1",
		TargetStatus: "diagnosed",
		Note:         "water damage on the logic board",
	})
	if err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	if res.Seq != 2 {
		t.Fatalf("Seq = %d, want 2", res.Seq)
	}
	if res.Status != domainrepair.StatusDiagnosed {
		t.Fatalf("Status = %s, want diagnosed", res.Status)
	}
	if res.Milestone != "diagnosis" || res.Progress != 20 {
		t.Fatalf("Milestone/Progress = %q/%d, want diagnosis/20", res.Milestone, res.Progress)
	}
}

func TestChangeStatusRejectsIllegalJump(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	_, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID:        jobID,
		ActorID:      "tech-1",
		TargetStatus: "in_repair",
	})
	var rejected *domainrepair.TransitionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("ChangeStatus(received -> in_repair) error = %v, want TransitionRejectedError", err)
	}
	if rejected.Current != domainrepair.StatusReceived || rejected.Attempted != domainrepair.StatusInRepair {
		t.Fatalf("rejection carries %s -> %s", rejected.Current, rejected.Attempted)
	}

	// Nothing was appended.
	events, err := svc.GetTimeline(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("timeline len = %d, want 1 after rejected command", len(events))
	}
}

func TestChangeStatusUnknownJob(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID:        "no-such-job",
		ActorID:      "tech-1",
		TargetStatus: "diagnosed",
	})
	if !errors.Is(err, ports.ErrJobNotFound) {
		t.Fatalf("ChangeStatus(unknown job) error = %v, want ErrJobNotFound", err)
	}
}

func TestChangeStatusOutOfQualityCheckIsGateOnly(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)
	advanceTo(t, svc, ctx, jobID, domainrepair.StatusQualityCheck)

	_, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID:        jobID,
		ActorID:      "tech-1",
		TargetStatus: "ready_for_pickup",
	})
	if !errors.Is(err, domainrepair.ErrQualityCheckRequired) {
		t.Fatalf("ChangeStatus(quality_check -> ready_for_pickup) error = %v, want ErrQualityCheckRequired", err)
	}
}

func TestQualityGatePassMovesToReadyForPickup(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)
	advanceTo(t, svc, ctx, jobID, domainrepair.StatusQualityCheck)

	res, err := svc.SubmitQualityCheck(ctx, SubmitQualityCheckInput{
		JobID:   jobID,
		ActorID: "qa-1",
		Passed:  true,
		Score:   9.5,
	})
	if err != nil {
		t.Fatalf("SubmitQualityCheck() error = %v", err)
	}
	if res.Status != domainrepair.StatusReadyForPickup {
		t.Fatalf("Status = %s, want ready_for_pickup", res.Status)
	}
	if len(res.EventIDs) != 2 {
		t.Fatalf("EventIDs len = %d, want 2 (check + transition)", len(res.EventIDs))
	}
	if res.Rework != 0 {
		t.Fatalf("Rework = %d, want 0", res.Rework)
	}

	events, err := svc.GetTimeline(ctx, jobID, res.Seq-2)
	if err != nil {
		t.Fatalf("GetTimeline() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("tail len = %d, want 2", len(events))
	}
	if events[0].Kind != domainrepair.EventQualityCheck || events[1].Kind != domainrepair.EventStatusChange {
		t.Fatalf("tail kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
	if events[1].Seq != events[0].Seq+1 {
		t.Fatalf("gate events not consecutive: %d then %d", events[0].Seq, events[1].Seq)
	}
}

func TestQualityGateFailureSendsBackToRepair(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)
	advanceTo(t, svc, ctx, jobID, domainrepair.StatusQualityCheck)

	res, err := svc.SubmitQualityCheck(ctx, SubmitQualityCheckInput{
		JobID:   jobID,
		ActorID: "qa-1",
		Passed:  false,
		Score:   4,
		Issues:  []string{"speaker distortion"},
	})
	if err != nil {
		t.Fatalf("SubmitQualityCheck() error = %v", err)
	}
	if res.Status != domainrepair.StatusInRepair {
		t.Fatalf("Status = %s, want in_repair", res.Status)
	}
	if res.Rework != 1 {
		t.Fatalf("Rework = %d, want 1", res.Rework)
	}
	if res.Progress != 55 {
		t.Fatalf("Progress = %d, want 55 after rework", res.Progress)
	}

	agg, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if agg.LastQuality == nil || agg.LastQuality.Passed {
		t.Fatalf("LastQuality = %+v, want failed result", agg.LastQuality)
	}
}

func TestQualityCheckRequiresQualityCheckStatus(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	_, err := svc.SubmitQualityCheck(ctx, SubmitQualityCheckInput{
		JobID:   jobID,
		ActorID: "qa-1",
		Passed:  true,
		Score:   8,
	})
	var rejected *domainrepair.TransitionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("SubmitQualityCheck(received) error = %v, want TransitionRejectedError", err)
	}
}

func TestQualityCheckValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.SubmitQualityCheck(ctx, SubmitQualityCheckInput{
		JobID: "job", ActorID: "qa-1", Passed: true, Score: 11,
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("score 11 error = %v, want ErrInvalidCommand", err)
	}
	if _, err := svc.SubmitQualityCheck(ctx, SubmitQualityCheckInput{
		JobID: "job", ActorID: "qa-1", Passed: false, Score: 2,
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("fail without issues error = %v, want ErrInvalidCommand", err)
	}
}

func TestConcurrentStatusChangesExactlyOneWins(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ChangeStatus(ctx, ChangeStatusInput{
				JobID:        jobID,
				ActorID:      "tech-1",
				TargetStatus: "diagnosed",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// Serialized behind the in-process lock the loser revalidates
		// against refreshed state and gets a TransitionRejectedError; a
		// lock timeout surfaces as a retryable ConflictError instead.
		var rejected *domainrepair.TransitionRejectedError
		var conflict *domainrepair.ConflictError
		if !errors.As(err, &rejected) && !errors.As(err, &conflict) {
			t.Fatalf("loser error = %v, want TransitionRejectedError or ConflictError", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1 (errors: %v)", succeeded, errs)
	}

	agg, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if agg.Seq != 2 || agg.Status != domainrepair.StatusDiagnosed {
		t.Fatalf("projection = seq %d status %s, want seq 2 diagnosed", agg.Seq, agg.Status)
	}
}

func TestAssignTechnicianLatestPrimaryWins(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	if _, err := svc.AssignTechnician(ctx, AssignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-1", IsPrimary: true,
	}); err != nil {
		t.Fatalf("AssignTechnician(tech-1) error = %v", err)
	}
	if _, err := svc.AssignTechnician(ctx, AssignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-2", IsPrimary: true,
	}); err != nil {
		t.Fatalf("AssignTechnician(tech-2) error = %v", err)
	}

	agg, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if tech, ok := agg.PrimaryTechnician(); !ok || tech != "tech-2" {
		t.Fatalf("PrimaryTechnician() = %q, %v, want tech-2", tech, ok)
	}
	open := agg.OpenAssignments()
	if len(open) != 2 {
		t.Fatalf("OpenAssignments() len = %d, want 2", len(open))
	}
}

func TestUnassignTechnician(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	if _, err := svc.UnassignTechnician(ctx, UnassignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-9",
	}); !errors.Is(err, domainrepair.ErrTechnicianNotAssigned) {
		t.Fatalf("UnassignTechnician(not assigned) error = %v, want ErrTechnicianNotAssigned", err)
	}

	if _, err := svc.AssignTechnician(ctx, AssignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-1",
	}); err != nil {
		t.Fatalf("AssignTechnician() error = %v", err)
	}
	if _, err := svc.UnassignTechnician(ctx, UnassignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-1",
	}); err != nil {
		t.Fatalf("UnassignTechnician() error = %v", err)
	}

	agg, err := svc.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if agg.IsAssigned("tech-1") {
		t.Fatalf("tech-1 still assigned after unassign")
	}
}

func TestNotesAllowedAfterTerminalAssignmentsNot(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	if _, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID: jobID, ActorID: "front-desk", TargetStatus: "cancelled", Note: "customer withdrew",
	}); err != nil {
		t.Fatalf("ChangeStatus(cancelled) error = %v", err)
	}

	if _, err := svc.AddNote(ctx, AddNoteInput{
		JobID: jobID, ActorID: "front-desk", Text: "device returned unrepaired",
	}); err != nil {
		t.Fatalf("AddNote(after cancel) error = %v", err)
	}

	if _, err := svc.AssignTechnician(ctx, AssignTechnicianInput{
		JobID: jobID, ActorID: "lead", TechnicianID: "tech-1",
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("AssignTechnician(after cancel) error = %v, want ErrInvalidCommand", err)
	}
}

func TestAddPhotoValidatesURL(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	if _, err := svc.AddPhoto(ctx, AddPhotoInput{
		JobID: jobID, ActorID: "tech-1", URL: "photos/1.jpg",
	}); !errors.Is(err, domainrepair.ErrInvalidCommand) {
		t.Fatalf("AddPhoto(relative url) error = %v, want ErrInvalidCommand", err)
	}

	res, err := svc.AddPhoto(ctx, AddPhotoInput{
		JobID: jobID, ActorID: "tech-1", URL: "https://photos.example/1.jpg", Category: "intake",
	})
	if err != nil {
		t.Fatalf("AddPhoto() error = %v", err)
	}
	if res.Seq != 2 {
		t.Fatalf("Seq = %d, want 2", res.Seq)
	}
}

func TestHaltedJobRefusesWrites(t *testing.T) {
	svc, _, db := setupServiceWithDB(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	repo := sqliterepo.NewRepairRepository(db)
	if err := repo.MarkJobHalted(ctx, jobID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		t.Fatalf("MarkJobHalted() error = %v", err)
	}

	if _, err := svc.AddNote(ctx, AddNoteInput{
		JobID: jobID, ActorID: "tech-1", Text: "should not land",
	}); !errors.Is(err, domainrepair.ErrJobHalted) {
		t.Fatalf("AddNote(halted) error = %v, want ErrJobHalted", err)
	}
}

func TestGetJobDetectsTamperedTimeline(t *testing.T) {
	svc, _, db := setupServiceWithDB(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)
	if _, err := svc.ChangeStatus(ctx, ChangeStatusInput{
		JobID: jobID, ActorID: "tech-1", TargetStatus: "diagnosed",
	}); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}

	// Rip an event out from under the projection.
	if err := db.Exec("DELETE FROM timeline_events WHERE job_id = ? AND seq = 2", jobID).Error; err != nil {
		t.Fatalf("delete event: %v", err)
	}

	_, err := svc.GetJob(ctx, jobID)
	var integrity *domainrepair.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("GetJob(tampered) error = %v, want IntegrityError", err)
	}

	// The violation halts the job.
	if _, err := svc.AddNote(ctx, AddNoteInput{
		JobID: jobID, ActorID: "tech-1", Text: "x",
	}); !errors.Is(err, domainrepair.ErrJobHalted) {
		t.Fatalf("AddNote(after violation) error = %v, want ErrJobHalted", err)
	}
}

func TestSubscribeStreamsAppendedEvents(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)

	sub, err := svc.Subscribe(ctx, jobID)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	if _, err := svc.AddNote(ctx, AddNoteInput{
		JobID: jobID, ActorID: "tech-1", Text: "streamed note",
	}); err != nil {
		t.Fatalf("AddNote() error = %v", err)
	}

	select {
	case ev := <-sub.C:
		if ev.Kind != domainrepair.EventNoteAdded || ev.Seq != 2 {
			t.Fatalf("streamed event = %+v, want note_added seq 2", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event streamed within 2s")
	}
}

func TestGetTimelinePagination(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	jobID := createJob(t, svc, ctx)
	advanceTo(t, svc, ctx, jobID, domainrepair.StatusInRepair)

	all, err := svc.GetTimeline(ctx, jobID, 0)
	if err != nil {
		t.Fatalf("GetTimeline(0) error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("timeline len = %d, want 4", len(all))
	}
	for i, ev := range all {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d, want %d", i, ev.Seq, i+1)
		}
	}

	tail, err := svc.GetTimeline(ctx, jobID, 2)
	if err != nil {
		t.Fatalf("GetTimeline(2) error = %v", err)
	}
	if len(tail) != 2 || tail[0].Seq != 3 {
		t.Fatalf("tail = %+v, want seqs 3..4", tail)
	}
}
