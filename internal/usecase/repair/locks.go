package repair

import (
	"context"
	"sync"
	"time"

	domainrepair "repairtrack/internal/domain/repair"
)

const defaultLockTimeout = 3 * time.Second

// lockSlot is one job's serialization channel plus the number of holders
// and waiters currently referencing it. The map entry is evicted when the
// count drops to zero, so the table only holds jobs with writes in flight.
type lockSlot struct {
	ch   chan struct{}
	refs int
}

// jobLocks is the per-job serialization point. A writer that cannot acquire
// it within the timeout gets a ConflictError instead of blocking
// indefinitely; writes to different jobs never contend.
type jobLocks struct {
	mu      sync.Mutex
	slots   map[string]*lockSlot
	timeout time.Duration
}

func newJobLocks(timeout time.Duration) *jobLocks {
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}
	return &jobLocks{
		slots:   make(map[string]*lockSlot),
		timeout: timeout,
	}
}

func (l *jobLocks) checkout(jobID string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[jobID]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[jobID] = slot
	}
	slot.refs++
	return slot
}

func (l *jobLocks) checkin(jobID string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, jobID)
	}
}

func (l *jobLocks) acquire(ctx context.Context, jobID string) (func(), error) {
	slot := l.checkout(jobID)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.checkin(jobID, slot)
		}, nil
	case <-timer.C:
		l.checkin(jobID, slot)
		return nil, &domainrepair.ConflictError{JobID: jobID}
	case <-ctx.Done():
		l.checkin(jobID, slot)
		return nil, ctx.Err()
	}
}
