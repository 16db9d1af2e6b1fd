package ports

import "context"

const (
	NotificationPending = "pending"
	NotificationSending = "sending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

type NotificationRecord struct {
	NotificationID string
	EventID        string
	JobID          string
	Recipient      string
	RecipientRole  string
	Channel        string
	IdempotencyKey string
	Status         string
	Attempts       int
	LastError      string
	NextAttemptAt  string
	LastAttemptAt  *string
	SummaryJSON    string
	CreatedAt      string
	UpdatedAt      string
}

type NotificationCreate struct {
	NotificationID string
	EventID        string
	JobID          string
	Recipient      string
	RecipientRole  string
	Channel        string
	IdempotencyKey string
	SummaryJSON    string
	CreatedAt      string
}

type NotificationRepository interface {
	// CreateNotification inserts a pending row, or reports false when a row
	// with the same idempotency key already exists. Never updates.
	CreateNotification(ctx context.Context, input NotificationCreate) (bool, error)
	// ListDue returns pending rows whose next_attempt_at is not after now.
	ListDue(ctx context.Context, now string, limit int) ([]NotificationRecord, error)
	// ClaimForDelivery flips pending -> sending; false means another worker
	// holds the row or its state moved on.
	ClaimForDelivery(ctx context.Context, notificationID string, now string) (bool, error)
	MarkSent(ctx context.Context, notificationID string, at string) error
	// MarkRetry returns the row to pending with the next attempt time set.
	MarkRetry(ctx context.Context, notificationID string, attempts int, nextAttemptAt string, at string, lastError string) error
	MarkFailed(ctx context.Context, notificationID string, attempts int, at string, lastError string) error
	// RequeueStuckSending returns rows stuck in sending (a crashed worker)
	// to pending. Reports how many rows were requeued.
	RequeueStuckSending(ctx context.Context, olderThan string, now string) (int64, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
