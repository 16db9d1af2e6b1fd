package model

// TechnicianAssignment rows are mutated only as a side effect of
// technician_assigned / technician_unassigned timeline events.
type TechnicianAssignment struct {
	AssignmentID uint64  `gorm:"column:assignment_id;primaryKey;autoIncrement"`
	JobID        string  `gorm:"column:job_id;type:text;not null;index"`
	TechnicianID string  `gorm:"column:technician_id;type:text;not null;index"`
	IsPrimary    bool    `gorm:"column:is_primary;not null;default:0"`
	AssignedAt   string  `gorm:"column:assigned_at;type:text;not null"`
	UnassignedAt *string `gorm:"column:unassigned_at;type:text"`
}

func (TechnicianAssignment) TableName() string {
	return "technician_assignments"
}
