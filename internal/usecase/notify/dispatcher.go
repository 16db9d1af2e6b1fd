package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"repairtrack/internal/bootstrap/logging"
	domainrepair "repairtrack/internal/domain/repair"
	"repairtrack/internal/errs"
	"repairtrack/internal/ports"
	usecaserepair "repairtrack/internal/usecase/repair"
)

// Dispatcher turns appended timeline events into notification rows. It is
// idempotent per (event, recipient, channel): the deterministic idempotency
// key makes a redelivered event a no-op, so it may safely observe the same
// event twice (crash, reconnect, replay).
type Dispatcher struct {
	notifications ports.NotificationRepository
	repairs       ports.RepairReadRepository
	// cursor durably tracks the last timeline row CatchUp has swept past.
	cursor ports.Cache
	// channelsByRole maps a recipient role to its delivery channels.
	channelsByRole map[string][]string
}

func NewDispatcher(notifications ports.NotificationRepository, repairs ports.RepairReadRepository, cursor ports.Cache, channelsByRole map[string][]string) *Dispatcher {
	return &Dispatcher{
		notifications:  notifications,
		repairs:        repairs,
		cursor:         cursor,
		channelsByRole: channelsByRole,
	}
}

// Run consumes the event feed until ctx is cancelled, then drains whatever
// is still buffered so accepted commands do not lose their notifications on
// a clean shutdown.
func (d *Dispatcher) Run(ctx context.Context, feed <-chan domainrepair.Event) {
	for {
		select {
		case <-ctx.Done():
			d.drain(feed)
			return
		case ev := <-feed:
			if _, err := d.Enqueue(ctx, ev); err != nil {
				logging.Error(ctx, "enqueue notifications failed",
					slog.String("job_id", ev.JobID),
					slog.Uint64("seq", ev.Seq),
					slog.Any("err", errs.Loggable(err)),
				)
			}
		}
	}
}

const drainTimeout = 30 * time.Second

func (d *Dispatcher) drain(feed <-chan domainrepair.Event) {
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case <-drainCtx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			if _, err := d.Enqueue(drainCtx, ev); err != nil {
				logging.Error(drainCtx, "enqueue notifications failed during drain",
					slog.String("job_id", ev.JobID),
					slog.Any("err", errs.Loggable(err)),
				)
			}
		default:
			return
		}
	}
}

const (
	catchUpCursorKey = "notify_dispatch_cursor"
	catchUpBatchSize = 200
)

// CatchUp enqueues notifications for timeline events appended while no
// dispatcher was consuming the bus: writes made from a short-lived CLI
// process, or a crash between commit and publish. The idempotency key makes
// re-visiting an already dispatched event a no-op, so the cursor only
// bounds the scan, it does not guard correctness; a lost cursor re-sweeps
// from the start. Returns how many rows were inserted.
func (d *Dispatcher) CatchUp(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if d.cursor == nil {
		return 0, errors.New("cursor store is required")
	}

	after, err := d.loadCursor(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for {
		records, err := d.repairs.ListEventsAfter(ctx, after, catchUpBatchSize)
		if err != nil {
			return inserted, errs.Wrap(err, "list timeline events for catch-up")
		}
		if len(records) == 0 {
			return inserted, nil
		}

		for _, rec := range records {
			ev, err := usecaserepair.EventFromRecord(rec)
			if err != nil {
				return inserted, errs.Wrapf(err, "decode timeline event %s", rec.EventID)
			}
			n, err := d.Enqueue(ctx, ev)
			if err != nil {
				return inserted, err
			}
			inserted += n
			after = rec.RowID
		}

		if err := d.saveCursor(ctx, after); err != nil {
			return inserted, err
		}
	}
}

func (d *Dispatcher) loadCursor(ctx context.Context) (uint64, error) {
	raw, found, err := d.cursor.Get(ctx, catchUpCursorKey)
	if err != nil {
		return 0, errs.Wrap(err, "load catch-up cursor")
	}
	if !found {
		return 0, nil
	}
	after, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		// A garbled cursor only costs a redundant, idempotent re-sweep.
		logging.Warn(ctx, "catch-up cursor unreadable, sweeping from the start",
			slog.String("cursor", raw),
		)
		return 0, nil
	}
	return after, nil
}

func (d *Dispatcher) saveCursor(ctx context.Context, rowID uint64) error {
	if err := d.cursor.Set(ctx, catchUpCursorKey, strconv.FormatUint(rowID, 10), 0); err != nil {
		return errs.Wrap(err, "save catch-up cursor")
	}
	return nil
}

// Enqueue computes the recipient fan-out for one event and inserts one
// pending notification per (recipient, channel) that does not exist yet.
// Returns how many rows were actually inserted.
func (d *Dispatcher) Enqueue(ctx context.Context, ev domainrepair.Event) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if d.notifications == nil || d.repairs == nil {
		return 0, errors.New("dispatcher repositories are required")
	}

	job, err := d.repairs.GetJob(ctx, ev.JobID)
	if err != nil {
		return 0, errs.Wrap(err, "load job for notification fan-out")
	}
	assignments, err := d.repairs.ListAssignments(ctx, ev.JobID)
	if err != nil {
		return 0, errs.Wrap(err, "load assignments for notification fan-out")
	}
	agg := usecaserepair.ProjectionFromRecords(job, assignments)

	recipients := domainrepair.RecipientsFor(ev, agg)
	if len(recipients) == 0 {
		return 0, nil
	}

	summary, err := buildSummary(ev, agg)
	if err != nil {
		return 0, err
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return 0, errs.Wrap(err, "marshal event summary")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	inserted := 0

	for _, recipient := range recipients {
		channels := d.channelsByRole[string(recipient.Role)]
		for _, ch := range channels {
			ok, err := d.notifications.CreateNotification(ctx, ports.NotificationCreate{
				NotificationID: uuid.NewString(),
				EventID:        ev.EventID,
				JobID:          ev.JobID,
				Recipient:      recipient.ID,
				RecipientRole:  string(recipient.Role),
				Channel:        ch,
				IdempotencyKey: IdempotencyKey(ev.EventID, recipient.ID, ch),
				SummaryJSON:    string(summaryJSON),
				CreatedAt:      now,
			})
			if err != nil {
				return inserted, err
			}
			if ok {
				inserted++
			}
		}
	}

	if inserted > 0 {
		logging.Info(ctx, "notifications enqueued",
			slog.String("job_id", ev.JobID),
			slog.String("event_id", ev.EventID),
			slog.Int("count", inserted),
		)
	}
	return inserted, nil
}

// IdempotencyKey is deterministic in (event, recipient, channel) so a
// second dispatch of the same fact collides with the first row.
func IdempotencyKey(eventID string, recipient string, channelName string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{eventID, recipient, channelName}, "|")))
	return hex.EncodeToString(sum[:])
}

func buildSummary(ev domainrepair.Event, agg domainrepair.Aggregate) (ports.EventSummary, error) {
	summary := ports.EventSummary{
		JobID:     ev.JobID,
		EventID:   ev.EventID,
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		Status:    string(agg.Status),
		Milestone: agg.Milestone,
		Progress:  agg.Progress,
		CreatedAt: ev.CreatedAt,
	}

	switch ev.Kind {
	case domainrepair.EventStatusChange:
		p, err := ev.StatusChange()
		if err != nil {
			return ports.EventSummary{}, err
		}
		summary.Headline = fmt.Sprintf("repair status is now %s", p.To)
	case domainrepair.EventQualityCheck:
		p, err := ev.QualityCheck()
		if err != nil {
			return ports.EventSummary{}, err
		}
		if p.Passed {
			summary.Headline = "quality check passed"
		} else {
			summary.Headline = fmt.Sprintf("quality check failed: %s", strings.Join(p.Issues, "; "))
		}
	case domainrepair.EventTechnicianAssigned:
		p, err := ev.Assignment()
		if err != nil {
			return ports.EventSummary{}, err
		}
		summary.Headline = fmt.Sprintf("you have been assigned to repair job %s", ev.JobID)
		if p.IsPrimary {
			summary.Headline += " as primary technician"
		}
	default:
		summary.Headline = fmt.Sprintf("repair job %s: %s", ev.JobID, ev.Kind)
	}

	return summary, nil
}
