package model

// Job is the stored projection of one repair job. Its lifecycle columns
// (status, milestone, progress, rework_count) are only ever written as the
// fold of the job's timeline events; current_seq is the optimistic
// concurrency token guarding every append.
type Job struct {
	JobID              string `gorm:"column:job_id;type:text;primaryKey"`
	CustomerRef        string `gorm:"column:customer_ref;type:text;not null;index"`
	DeviceMetaJSON     string `gorm:"column:device_meta_json;type:text;not null"`
	Status             string `gorm:"column:status;type:text;not null"`
	Milestone          string `gorm:"column:milestone;type:text;not null"`
	Progress           int    `gorm:"column:progress;not null;default:0"`
	ReworkCount        int    `gorm:"column:rework_count;not null;default:0"`
	EstimatedCostCents int64  `gorm:"column:estimated_cost_cents;not null;default:0"`
	CurrentSeq         uint64 `gorm:"column:current_seq;not null;default:0"`
	Halted             bool   `gorm:"column:halted;not null;default:0"`
	CreatedAt          string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt          string `gorm:"column:updated_at;type:text;not null"`
}

func (Job) TableName() string {
	return "jobs"
}
