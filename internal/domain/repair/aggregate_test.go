package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"
)

func mustEvent(t *testing.T, jobID string, seq uint64, kind EventKind, payload any) Event {
	t.Helper()

	raw, err := MarshalPayload(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return Event{
		EventID:   fmt.Sprintf("ev-%d", seq),
		JobID:     jobID,
		Seq:       seq,
		Kind:      kind,
		Actor:     "tester",
		Payload:   raw,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func happyPathEvents(t *testing.T, jobID string) []Event {
	t.Helper()

	return []Event{
		mustEvent(t, jobID, 1, EventStatusChange, StatusChangePayload{To: StatusReceived}),
		mustEvent(t, jobID, 2, EventTechnicianAssigned, AssignmentPayload{TechnicianID: "tech-1", IsPrimary: true}),
		mustEvent(t, jobID, 3, EventStatusChange, StatusChangePayload{From: StatusReceived, To: StatusDiagnosed}),
		mustEvent(t, jobID, 4, EventNoteAdded, NotePayload{Text: "board corrosion found"}),
		mustEvent(t, jobID, 5, EventStatusChange, StatusChangePayload{From: StatusDiagnosed, To: StatusPartsOrdered}),
		mustEvent(t, jobID, 6, EventStatusChange, StatusChangePayload{From: StatusPartsOrdered, To: StatusInRepair}),
		mustEvent(t, jobID, 7, EventPhotoAdded, PhotoPayload{URL: "https://photos.example/1.jpg", Category: "repair"}),
		mustEvent(t, jobID, 8, EventStatusChange, StatusChangePayload{From: StatusInRepair, To: StatusQualityCheck}),
	}
}

func TestReplayFoldsHappyPath(t *testing.T) {
	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{"device":"laptop"}`), 12000)

	agg, err := Replay(seed, happyPathEvents(t, "job-1"))
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if agg.Status != StatusQualityCheck {
		t.Fatalf("Status = %s, want quality_check", agg.Status)
	}
	if agg.Seq != 8 {
		t.Fatalf("Seq = %d, want 8", agg.Seq)
	}
	if agg.Progress != 70 {
		t.Fatalf("Progress = %d, want 70", agg.Progress)
	}
	if agg.Milestone != "quality check" {
		t.Fatalf("Milestone = %q, want quality check", agg.Milestone)
	}
	if agg.ReworkCount != 0 {
		t.Fatalf("ReworkCount = %d, want 0", agg.ReworkCount)
	}
	if tech, ok := agg.PrimaryTechnician(); !ok || tech != "tech-1" {
		t.Fatalf("PrimaryTechnician() = %q, %v", tech, ok)
	}
}

func TestIncrementalApplyEqualsReplay(t *testing.T) {
	events := happyPathEvents(t, "job-1")
	events = append(events,
		mustEvent(t, "job-1", 9, EventQualityCheck, QualityCheckPayload{Passed: false, Score: 4.5, Issues: []string{"screen flicker"}}),
		mustEvent(t, "job-1", 10, EventStatusChange, StatusChangePayload{From: StatusQualityCheck, To: StatusInRepair, ViaQualityGate: true}),
	)

	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)

	incremental := seed
	for _, ev := range events {
		if err := incremental.Apply(ev); err != nil {
			t.Fatalf("Apply(seq %d) error = %v", ev.Seq, err)
		}
	}

	replayed, err := Replay(seed, events)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if !reflect.DeepEqual(incremental, replayed) {
		t.Fatalf("incremental fold diverged from replay:\nincremental %+v\nreplayed    %+v", incremental, replayed)
	}
}

func TestQualityFailureIncrementsReworkAndDropsProgress(t *testing.T) {
	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	events := happyPathEvents(t, "job-1")
	events = append(events,
		mustEvent(t, "job-1", 9, EventQualityCheck, QualityCheckPayload{Passed: false, Score: 3, Issues: []string{"battery drain"}}),
		mustEvent(t, "job-1", 10, EventStatusChange, StatusChangePayload{From: StatusQualityCheck, To: StatusInRepair, ViaQualityGate: true}),
	)

	agg, err := Replay(seed, events)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if agg.ReworkCount != 1 {
		t.Fatalf("ReworkCount = %d, want 1", agg.ReworkCount)
	}
	if agg.Status != StatusInRepair {
		t.Fatalf("Status = %s, want in_repair", agg.Status)
	}
	if agg.Progress != 55 {
		t.Fatalf("Progress = %d, want 55 after rework", agg.Progress)
	}
	if agg.LastQuality == nil || agg.LastQuality.Passed {
		t.Fatalf("LastQuality = %+v, want failed result", agg.LastQuality)
	}
}

func TestProgressIsMonotonicOutsideRework(t *testing.T) {
	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	override := 85
	events := []Event{
		mustEvent(t, "job-1", 1, EventStatusChange, StatusChangePayload{To: StatusReceived}),
		mustEvent(t, "job-1", 2, EventStatusChange, StatusChangePayload{From: StatusReceived, To: StatusDiagnosed, ProgressOverride: &override}),
		mustEvent(t, "job-1", 3, EventStatusChange, StatusChangePayload{From: StatusDiagnosed, To: StatusPartsOrdered}),
	}

	agg, err := Replay(seed, events)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	// parts_ordered defaults to 35 but progress may not move backwards.
	if agg.Progress != 85 {
		t.Fatalf("Progress = %d, want 85", agg.Progress)
	}
	if agg.Milestone != "final testing" {
		t.Fatalf("Milestone = %q, want final testing", agg.Milestone)
	}
}

func TestCancellationFreezesProgress(t *testing.T) {
	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	events := []Event{
		mustEvent(t, "job-1", 1, EventStatusChange, StatusChangePayload{To: StatusReceived}),
		mustEvent(t, "job-1", 2, EventStatusChange, StatusChangePayload{From: StatusReceived, To: StatusDiagnosed}),
		mustEvent(t, "job-1", 3, EventStatusChange, StatusChangePayload{From: StatusDiagnosed, To: StatusCancelled}),
	}

	agg, err := Replay(seed, events)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if agg.Status != StatusCancelled {
		t.Fatalf("Status = %s, want cancelled", agg.Status)
	}
	if agg.Progress != 20 {
		t.Fatalf("Progress = %d, want 20 frozen at diagnosis", agg.Progress)
	}
	if agg.Milestone != "diagnosis" {
		t.Fatalf("Milestone = %q, want diagnosis", agg.Milestone)
	}
}

func TestApplyRejectsSequenceGap(t *testing.T) {
	agg := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	if err := agg.Apply(mustEvent(t, "job-1", 1, EventStatusChange, StatusChangePayload{To: StatusReceived})); err != nil {
		t.Fatalf("Apply(seq 1) error = %v", err)
	}

	err := agg.Apply(mustEvent(t, "job-1", 3, EventNoteAdded, NotePayload{Text: "skipped 2"}))
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Apply(seq 3) error = %v, want IntegrityError", err)
	}
	if integrity.Seq != 3 {
		t.Fatalf("IntegrityError.Seq = %d, want 3", integrity.Seq)
	}
}

func TestApplyRejectsForeignJobEvent(t *testing.T) {
	agg := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)

	err := agg.Apply(mustEvent(t, "job-2", 1, EventStatusChange, StatusChangePayload{To: StatusReceived}))
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Apply() error = %v, want IntegrityError", err)
	}
}

func TestAssignNewPrimaryDemotesPrevious(t *testing.T) {
	seed := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	events := []Event{
		mustEvent(t, "job-1", 1, EventStatusChange, StatusChangePayload{To: StatusReceived}),
		mustEvent(t, "job-1", 2, EventTechnicianAssigned, AssignmentPayload{TechnicianID: "tech-1", IsPrimary: true}),
		mustEvent(t, "job-1", 3, EventTechnicianAssigned, AssignmentPayload{TechnicianID: "tech-2", IsPrimary: true}),
	}

	agg, err := Replay(seed, events)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	open := agg.OpenAssignments()
	if len(open) != 2 {
		t.Fatalf("OpenAssignments() len = %d, want 2", len(open))
	}
	if tech, ok := agg.PrimaryTechnician(); !ok || tech != "tech-2" {
		t.Fatalf("PrimaryTechnician() = %q, %v, want tech-2", tech, ok)
	}
	primaries := 0
	for _, as := range open {
		if as.IsPrimary {
			primaries++
		}
	}
	if primaries != 1 {
		t.Fatalf("open primary assignments = %d, want 1", primaries)
	}
}

func TestUnassignWithoutAssignmentIsIntegrityError(t *testing.T) {
	agg := NewAggregate("job-1", "cust-1", json.RawMessage(`{}`), 0)
	if err := agg.Apply(mustEvent(t, "job-1", 1, EventStatusChange, StatusChangePayload{To: StatusReceived})); err != nil {
		t.Fatalf("Apply(seq 1) error = %v", err)
	}

	err := agg.Apply(mustEvent(t, "job-1", 2, EventTechnicianUnassigned, AssignmentPayload{TechnicianID: "tech-9"}))
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Apply() error = %v, want IntegrityError", err)
	}
}
