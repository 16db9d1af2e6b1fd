package ports

import "context"

// EventSummary is the channel-independent digest of a timeline event that
// goes out to a recipient.
type EventSummary struct {
	JobID     string `json:"job_id"`
	EventID   string `json:"event_id"`
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Status    string `json:"status,omitempty"`
	Milestone string `json:"milestone,omitempty"`
	Progress  int    `json:"progress"`
	Headline  string `json:"headline"`
	CreatedAt string `json:"created_at"`
}

// ChannelSender is implemented by external delivery providers (webhook,
// push, email, SMS). A returned error means the attempt failed and is
// eligible for backoff retry.
type ChannelSender interface {
	Channel() string
	Send(ctx context.Context, recipient string, summary EventSummary) error
}
