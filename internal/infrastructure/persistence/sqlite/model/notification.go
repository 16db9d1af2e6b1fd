package model

// Notification rows are keyed by a deterministic idempotency key so that
// re-dispatching the same event never creates a duplicate delivery.
type Notification struct {
	NotificationID string  `gorm:"column:notification_id;type:text;primaryKey"`
	EventID        string  `gorm:"column:event_id;type:text;not null;index"`
	JobID          string  `gorm:"column:job_id;type:text;not null;index"`
	Recipient      string  `gorm:"column:recipient;type:text;not null"`
	RecipientRole  string  `gorm:"column:recipient_role;type:text;not null"`
	Channel        string  `gorm:"column:channel;type:text;not null"`
	IdempotencyKey string  `gorm:"column:idempotency_key;type:text;not null;uniqueIndex"`
	Status         string  `gorm:"column:status;type:text;not null;index"`
	Attempts       int     `gorm:"column:attempts;not null;default:0"`
	LastError      string  `gorm:"column:last_error;type:text;not null;default:''"`
	NextAttemptAt  string  `gorm:"column:next_attempt_at;type:text;not null;index"`
	LastAttemptAt  *string `gorm:"column:last_attempt_at;type:text"`
	SummaryJSON    string  `gorm:"column:summary_json;type:text;not null"`
	CreatedAt      string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt      string  `gorm:"column:updated_at;type:text;not null"`
}

func (Notification) TableName() string {
	return "notifications"
}
