package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"repairtrack/internal/errs"
	"repairtrack/internal/infrastructure/persistence/sqlite/model"
	"repairtrack/internal/ports"
)

type NotificationRepository struct {
	db *gorm.DB
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	return (&RepairRepository{db: r.db}).dbFromContext(ctx)
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, input ports.NotificationCreate) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.Notification{
		NotificationID: input.NotificationID,
		EventID:        input.EventID,
		JobID:          input.JobID,
		Recipient:      input.Recipient,
		RecipientRole:  input.RecipientRole,
		Channel:        input.Channel,
		IdempotencyKey: input.IdempotencyKey,
		Status:         ports.NotificationPending,
		Attempts:       0,
		NextAttemptAt:  input.CreatedAt,
		SummaryJSON:    input.SummaryJSON,
		CreatedAt:      input.CreatedAt,
		UpdatedAt:      input.CreatedAt,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "insert notification")
	}
	return result.RowsAffected > 0, nil
}

func (r *NotificationRepository) ListDue(ctx context.Context, now string, limit int) ([]ports.NotificationRecord, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Notification{}).
		Where("status = ? AND next_attempt_at <= ?", ports.NotificationPending, now).
		Order("next_attempt_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query due notifications")
	}

	items := make([]ports.NotificationRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

func (r *NotificationRepository) ClaimForDelivery(ctx context.Context, notificationID string, now string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Notification{}).
		Where("notification_id = ? AND status = ?", notificationID, ports.NotificationPending).
		Updates(map[string]any{
			"status":     ports.NotificationSending,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "claim notification")
	}
	return result.RowsAffected > 0, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, notificationID string, at string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Notification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]any{
			"status":          ports.NotificationSent,
			"last_error":      "",
			"last_attempt_at": at,
			"updated_at":      at,
		}).Error; err != nil {
		return errs.Wrap(err, "mark notification sent")
	}
	return nil
}

func (r *NotificationRepository) MarkRetry(ctx context.Context, notificationID string, attempts int, nextAttemptAt string, at string, lastError string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Notification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]any{
			"status":          ports.NotificationPending,
			"attempts":        attempts,
			"last_error":      lastError,
			"next_attempt_at": nextAttemptAt,
			"last_attempt_at": at,
			"updated_at":      at,
		}).Error; err != nil {
		return errs.Wrap(err, "mark notification for retry")
	}
	return nil
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, notificationID string, attempts int, at string, lastError string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Notification{}).
		Where("notification_id = ?", notificationID).
		Updates(map[string]any{
			"status":          ports.NotificationFailed,
			"attempts":        attempts,
			"last_error":      lastError,
			"last_attempt_at": at,
			"updated_at":      at,
		}).Error; err != nil {
		return errs.Wrap(err, "mark notification failed")
	}
	return nil
}

func (r *NotificationRepository) RequeueStuckSending(ctx context.Context, olderThan string, now string) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Model(&model.Notification{}).
		Where("status = ? AND updated_at < ?", ports.NotificationSending, olderThan).
		Updates(map[string]any{
			"status":          ports.NotificationPending,
			"next_attempt_at": now,
			"updated_at":      now,
		})
	if result.Error != nil {
		return 0, errs.Wrap(result.Error, "requeue stuck notifications")
	}
	return result.RowsAffected, nil
}

func (r *NotificationRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	if err := db.Model(&model.Notification{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "count notifications by status")
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func mapNotification(row model.Notification) ports.NotificationRecord {
	return ports.NotificationRecord{
		NotificationID: row.NotificationID,
		EventID:        row.EventID,
		JobID:          row.JobID,
		Recipient:      row.Recipient,
		RecipientRole:  row.RecipientRole,
		Channel:        row.Channel,
		IdempotencyKey: row.IdempotencyKey,
		Status:         row.Status,
		Attempts:       row.Attempts,
		LastError:      row.LastError,
		NextAttemptAt:  row.NextAttemptAt,
		LastAttemptAt:  row.LastAttemptAt,
		SummaryJSON:    row.SummaryJSON,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
