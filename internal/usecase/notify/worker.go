package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"repairtrack/internal/bootstrap/logging"
	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
)

// defaultBackoff is indexed by the attempt count so far: immediate first
// try, then increasingly long waits before each retry.
var defaultBackoff = []time.Duration{0, 30 * time.Second, 2 * time.Minute, 10 * time.Minute}

// stuckSendingAfter is how long a notification may sit in "sending" before
// we assume the worker holding it died and put it back in the pending pool.
const stuckSendingAfter = 5 * time.Minute

// DeliveryWorker drains pending notifications and hands each one to the
// sender registered for its channel. Failed sends are retried on a backoff
// schedule until maxAttempts is exhausted; after that the row is marked
// failed permanently and the failure is logged as an operational alert.
type DeliveryWorker struct {
	notifications ports.NotificationRepository
	senders       map[string]ports.ChannelSender
	maxAttempts   int
	pollInterval  time.Duration
	sendTimeout   time.Duration
	maxParallel   int
	backoff       []time.Duration
}

type WorkerConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
	SendTimeout  time.Duration
	MaxParallel  int
}

func NewDeliveryWorker(notifications ports.NotificationRepository, senders []ports.ChannelSender, cfg WorkerConfig) *DeliveryWorker {
	byName := make(map[string]ports.ChannelSender, len(senders))
	for _, s := range senders {
		byName[s.Channel()] = s
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = len(defaultBackoff)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	return &DeliveryWorker{
		notifications: notifications,
		senders:       byName,
		maxAttempts:   cfg.MaxAttempts,
		pollInterval:  cfg.PollInterval,
		sendTimeout:   cfg.SendTimeout,
		maxParallel:   cfg.MaxParallel,
		backoff:       defaultBackoff,
	}
}

// Run polls for due notifications until ctx is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.requeueStuck(ctx); err != nil {
				logging.Warn(ctx, "requeue stuck notifications failed", slog.Any("err", errs.Loggable(err)))
			}
			if _, err := w.DeliverDue(ctx); err != nil {
				logging.Error(ctx, "notification delivery pass failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}
}

func (w *DeliveryWorker) requeueStuck(ctx context.Context) error {
	now := time.Now().UTC()
	olderThan := now.Add(-stuckSendingAfter).Format(time.RFC3339Nano)
	n, err := w.notifications.RequeueStuckSending(ctx, olderThan, now.Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	if n > 0 {
		logging.Warn(ctx, "requeued stuck notifications", slog.Int64("count", n))
	}
	return nil
}

// DeliverDue runs one delivery pass over currently due notifications and
// returns how many it attempted. Sends within a pass run concurrently up to
// maxParallel.
func (w *DeliveryWorker) DeliverDue(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	due, err := w.notifications.ListDue(ctx, now, 100)
	if err != nil {
		return 0, errs.Wrap(err, "list due notifications")
	}
	if len(due) == 0 {
		return 0, nil
	}

	sem := make(chan struct{}, w.maxParallel)
	done := make(chan struct{})
	attempted := 0

	for _, rec := range due {
		if ctx.Err() != nil {
			break
		}
		claimed, err := w.notifications.ClaimForDelivery(ctx, rec.NotificationID, now)
		if err != nil {
			logging.Warn(ctx, "claim notification failed",
				slog.String("notification_id", rec.NotificationID),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		if !claimed {
			continue
		}
		attempted++
		sem <- struct{}{}
		go func(rec ports.NotificationRecord) {
			defer func() { <-sem; done <- struct{}{} }()
			w.deliverOne(ctx, rec)
		}(rec)
	}

	for i := 0; i < attempted; i++ {
		<-done
	}
	return attempted, nil
}

func (w *DeliveryWorker) deliverOne(ctx context.Context, rec ports.NotificationRecord) {
	attempt := rec.Attempts + 1
	sendErr := w.send(ctx, rec)

	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	if sendErr == nil {
		if err := w.notifications.MarkSent(ctx, rec.NotificationID, nowStr); err != nil {
			logging.Error(ctx, "mark notification sent failed",
				slog.String("notification_id", rec.NotificationID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		logging.Info(ctx, "notification delivered",
			slog.String("notification_id", rec.NotificationID),
			slog.String("channel", rec.Channel),
			slog.Int("attempt", attempt),
		)
		return
	}

	if attempt >= w.maxAttempts {
		if err := w.notifications.MarkFailed(ctx, rec.NotificationID, attempt, nowStr, sendErr.Error()); err != nil {
			logging.Error(ctx, "mark notification failed errored",
				slog.String("notification_id", rec.NotificationID),
				slog.Any("err", errs.Loggable(err)),
			)
		}
		// Permanent failure is an operational alert, not a crash.
		logging.Error(ctx, "notification permanently failed",
			slog.String("notification_id", rec.NotificationID),
			slog.String("job_id", rec.JobID),
			slog.String("recipient", rec.Recipient),
			slog.String("channel", rec.Channel),
			slog.Int("attempts", attempt),
			slog.Any("err", errs.Loggable(sendErr)),
		)
		return
	}

	next := now.Add(w.backoffFor(attempt)).Format(time.RFC3339Nano)
	if err := w.notifications.MarkRetry(ctx, rec.NotificationID, attempt, next, nowStr, sendErr.Error()); err != nil {
		logging.Error(ctx, "mark notification retry failed",
			slog.String("notification_id", rec.NotificationID),
			slog.Any("err", errs.Loggable(err)),
		)
		return
	}
	logging.Warn(ctx, "notification send failed, will retry",
		slog.String("notification_id", rec.NotificationID),
		slog.String("channel", rec.Channel),
		slog.Int("attempt", attempt),
		slog.String("next_attempt_at", next),
		slog.Any("err", errs.Loggable(sendErr)),
	)
}

func (w *DeliveryWorker) send(ctx context.Context, rec ports.NotificationRecord) error {
	sender, ok := w.senders[rec.Channel]
	if !ok {
		return errs.Wrapf(errors.New("no sender registered"), "channel %q", rec.Channel)
	}

	var summary ports.EventSummary
	if err := json.Unmarshal([]byte(rec.SummaryJSON), &summary); err != nil {
		return errs.Wrap(err, "decode notification summary")
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	return sender.Send(sendCtx, rec.Recipient, summary)
}

func (w *DeliveryWorker) backoffFor(attempts int) time.Duration {
	if attempts < len(w.backoff) {
		return w.backoff[attempts]
	}
	return w.backoff[len(w.backoff)-1]
}

// Stats reports notification counts by status.
func (w *DeliveryWorker) Stats(ctx context.Context) (map[string]int64, error) {
	return w.notifications.CountByStatus(ctx)
}
