package repair

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EventKind string

const (
	EventStatusChange         EventKind = "status_change"
	EventNoteAdded            EventKind = "note_added"
	EventPhotoAdded           EventKind = "photo_added"
	EventQualityCheck         EventKind = "quality_check"
	EventTechnicianAssigned   EventKind = "technician_assigned"
	EventTechnicianUnassigned EventKind = "technician_unassigned"
)

var allEventKinds = map[EventKind]struct{}{
	EventStatusChange:         {},
	EventNoteAdded:            {},
	EventPhotoAdded:           {},
	EventQualityCheck:         {},
	EventTechnicianAssigned:   {},
	EventTechnicianUnassigned: {},
}

func ParseEventKind(raw string) (EventKind, error) {
	candidate := EventKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := allEventKinds[candidate]; !ok {
		return "", fmt.Errorf("%w: unknown event kind %q", ErrInvalidCommand, raw)
	}
	return candidate, nil
}

// Event is one immutable, ordered fact recorded against a job. Seq starts
// at 1 and is gapless per job.
type Event struct {
	EventID   string
	JobID     string
	Seq       uint64
	Kind      EventKind
	Actor     string
	Payload   json.RawMessage
	CreatedAt string
}

// StatusChangePayload records a transition. ViaQualityGate marks the two
// transitions only the quality gate may synthesize.
type StatusChangePayload struct {
	From             Status `json:"from"`
	To               Status `json:"to"`
	Note             string `json:"note,omitempty"`
	ProgressOverride *int   `json:"progress_override,omitempty"`
	ViaQualityGate   bool   `json:"via_quality_gate,omitempty"`
}

type NotePayload struct {
	Text      string `json:"text"`
	IsPrivate bool   `json:"is_private"`
}

type PhotoPayload struct {
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
}

type QualityCheckPayload struct {
	Passed          bool     `json:"passed"`
	Score           float64  `json:"score"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

type AssignmentPayload struct {
	TechnicianID string `json:"technician_id"`
	IsPrimary    bool   `json:"is_primary,omitempty"`
}

func MarshalPayload(payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return raw, nil
}

func (e Event) StatusChange() (StatusChangePayload, error) {
	var p StatusChangePayload
	return p, e.decodeInto(EventStatusChange, &p)
}

func (e Event) Note() (NotePayload, error) {
	var p NotePayload
	return p, e.decodeInto(EventNoteAdded, &p)
}

func (e Event) Photo() (PhotoPayload, error) {
	var p PhotoPayload
	return p, e.decodeInto(EventPhotoAdded, &p)
}

func (e Event) QualityCheck() (QualityCheckPayload, error) {
	var p QualityCheckPayload
	return p, e.decodeInto(EventQualityCheck, &p)
}

func (e Event) Assignment() (AssignmentPayload, error) {
	var p AssignmentPayload
	if e.Kind != EventTechnicianAssigned && e.Kind != EventTechnicianUnassigned {
		return p, fmt.Errorf("event %s is %s, not an assignment event", e.EventID, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return p, nil
}

func (e Event) decodeInto(want EventKind, out any) error {
	if e.Kind != want {
		return fmt.Errorf("event %s is %s, not %s", e.EventID, e.Kind, want)
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", want, err)
	}
	return nil
}
