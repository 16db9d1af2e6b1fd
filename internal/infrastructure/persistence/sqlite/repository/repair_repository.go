package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"repairtrack/internal/errs"
	"repairtrack/internal/infrastructure/persistence/sqlite/model"
	"repairtrack/internal/ports"
)

type RepairRepository struct {
	db *gorm.DB
}

var _ ports.RepairRepository = (*RepairRepository)(nil)

func NewRepairRepository(db *gorm.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

func (r *RepairRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *RepairRepository) GetJob(ctx context.Context, jobID string) (ports.JobRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.JobRecord{}, err
	}

	var row model.Job
	if err := db.Where("job_id = ?", jobID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.JobRecord{}, ports.ErrJobNotFound
		}
		return ports.JobRecord{}, errs.Wrap(err, "query job")
	}
	return mapJob(row), nil
}

func (r *RepairRepository) ListEvents(ctx context.Context, jobID string, fromSeq uint64, limit int) ([]ports.TimelineEventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.TimelineEvent{}).
		Where("job_id = ? AND seq > ?", jobID, fromSeq).
		Order("seq asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.TimelineEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query timeline events")
	}

	return mapEvents(rows), nil
}

func (r *RepairRepository) ListEventsAfter(ctx context.Context, afterRowID uint64, limit int) ([]ports.TimelineEventRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.TimelineEvent{}).
		Where("row_id > ?", afterRowID).
		Order("row_id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.TimelineEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query timeline events after row")
	}
	return mapEvents(rows), nil
}

func mapEvents(rows []model.TimelineEvent) []ports.TimelineEventRecord {
	items := make([]ports.TimelineEventRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.TimelineEventRecord{
			RowID:       row.RowID,
			EventID:     row.EventID,
			JobID:       row.JobID,
			Seq:         row.Seq,
			Kind:        row.Kind,
			PayloadJSON: row.PayloadJSON,
			Actor:       row.Actor,
			CreatedAt:   row.CreatedAt,
		})
	}
	return items
}

func (r *RepairRepository) ListAssignments(ctx context.Context, jobID string) ([]ports.AssignmentRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.TechnicianAssignment
	if err := db.
		Where("job_id = ?", jobID).
		Order("assignment_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query assignments")
	}

	items := make([]ports.AssignmentRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.AssignmentRecord{
			AssignmentID: row.AssignmentID,
			JobID:        row.JobID,
			TechnicianID: row.TechnicianID,
			IsPrimary:    row.IsPrimary,
			AssignedAt:   row.AssignedAt,
			UnassignedAt: row.UnassignedAt,
		})
	}
	return items, nil
}

func (r *RepairRepository) CreateJob(ctx context.Context, job ports.JobRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Job{
		JobID:              job.JobID,
		CustomerRef:        job.CustomerRef,
		DeviceMetaJSON:     job.DeviceMetaJSON,
		Status:             job.Status,
		Milestone:          job.Milestone,
		Progress:           job.Progress,
		ReworkCount:        job.ReworkCount,
		EstimatedCostCents: job.EstimatedCostCents,
		CurrentSeq:         job.CurrentSeq,
		Halted:             job.Halted,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert job")
	}
	return nil
}

func (r *RepairRepository) AppendEvents(ctx context.Context, events []ports.TimelineEventRecord) error {
	if len(events) == 0 {
		return nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows := make([]model.TimelineEvent, 0, len(events))
	for _, ev := range events {
		rows = append(rows, model.TimelineEvent{
			EventID:     ev.EventID,
			JobID:       ev.JobID,
			Seq:         ev.Seq,
			Kind:        ev.Kind,
			PayloadJSON: ev.PayloadJSON,
			Actor:       ev.Actor,
			CreatedAt:   ev.CreatedAt,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return errs.Wrap(err, "append timeline events")
	}
	return nil
}

func (r *RepairRepository) UpdateProjection(ctx context.Context, update ports.JobProjectionUpdate) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Job{}).
		Where("job_id = ? AND current_seq = ?", update.JobID, update.ExpectedSeq).
		Updates(map[string]any{
			"current_seq":  update.NewSeq,
			"status":       update.Status,
			"milestone":    update.Milestone,
			"progress":     update.Progress,
			"rework_count": update.ReworkCount,
			"updated_at":   update.UpdatedAt,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "update job projection")
	}
	return result.RowsAffected > 0, nil
}

func (r *RepairRepository) MarkJobHalted(ctx context.Context, jobID string, updatedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Job{}).
		Where("job_id = ?", jobID).
		Updates(map[string]any{
			"halted":     true,
			"updated_at": updatedAt,
		}).Error; err != nil {
		return errs.Wrap(err, "mark job halted")
	}
	return nil
}

func (r *RepairRepository) OpenAssignment(ctx context.Context, assignment ports.AssignmentRecord) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.TechnicianAssignment{
		JobID:        assignment.JobID,
		TechnicianID: assignment.TechnicianID,
		IsPrimary:    assignment.IsPrimary,
		AssignedAt:   assignment.AssignedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert assignment")
	}
	return nil
}

func (r *RepairRepository) CloseAssignment(ctx context.Context, jobID string, technicianID string, unassignedAt string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.TechnicianAssignment{}).
		Where("job_id = ? AND technician_id = ? AND unassigned_at IS NULL", jobID, technicianID).
		Updates(map[string]any{
			"unassigned_at": unassignedAt,
			"is_primary":    false,
		}).Error; err != nil {
		return errs.Wrap(err, "close assignment")
	}
	return nil
}

func (r *RepairRepository) DemoteOpenPrimaries(ctx context.Context, jobID string, exceptTechnicianID string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.TechnicianAssignment{}).
		Where("job_id = ? AND technician_id <> ? AND unassigned_at IS NULL AND is_primary = ?", jobID, exceptTechnicianID, true).
		Update("is_primary", false).Error; err != nil {
		return errs.Wrap(err, "demote open primaries")
	}
	return nil
}

func mapJob(row model.Job) ports.JobRecord {
	return ports.JobRecord{
		JobID:              row.JobID,
		CustomerRef:        row.CustomerRef,
		DeviceMetaJSON:     row.DeviceMetaJSON,
		Status:             row.Status,
		Milestone:          row.Milestone,
		Progress:           row.Progress,
		ReworkCount:        row.ReworkCount,
		EstimatedCostCents: row.EstimatedCostCents,
		CurrentSeq:         row.CurrentSeq,
		Halted:             row.Halted,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}
