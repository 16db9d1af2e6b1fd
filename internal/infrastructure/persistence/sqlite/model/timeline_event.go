package model

// TimelineEvent rows are append-only; the (job_id, seq) unique index is the
// last line of defense against duplicated or interleaved sequence numbers.
// RowID gives the table a global append order that the notification
// dispatcher's catch-up sweep cursors over.
type TimelineEvent struct {
	RowID       uint64 `gorm:"column:row_id;primaryKey;autoIncrement"`
	EventID     string `gorm:"column:event_id;type:text;not null;uniqueIndex"`
	JobID       string `gorm:"column:job_id;type:text;not null;uniqueIndex:idx_timeline_job_seq;index"`
	Seq         uint64 `gorm:"column:seq;not null;uniqueIndex:idx_timeline_job_seq"`
	Kind        string `gorm:"column:kind;type:text;not null"`
	PayloadJSON string `gorm:"column:payload_json;type:text;not null"`
	Actor       string `gorm:"column:actor;type:text;not null"`
	CreatedAt   string `gorm:"column:created_at;type:text;not null"`
}

func (TimelineEvent) TableName() string {
	return "timeline_events"
}
