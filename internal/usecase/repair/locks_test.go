package repair

import (
	"context"
	"errors"
	"testing"
	"time"

	domainrepair "repairtrack/internal/domain/repair"
)

func slotCount(l *jobLocks) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

func TestJobLockSlotEvictedWhenIdle(t *testing.T) {
	l := newJobLocks(0)
	ctx := context.Background()

	release, err := l.acquire(ctx, "job-1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}
	if slotCount(l) != 1 {
		t.Fatalf("slots = %d while held, want 1", slotCount(l))
	}

	release()
	if slotCount(l) != 0 {
		t.Fatalf("slots = %d after release, want 0", slotCount(l))
	}

	// Re-acquiring after eviction works on a fresh slot.
	release, err = l.acquire(ctx, "job-1")
	if err != nil {
		t.Fatalf("acquire() after eviction error = %v", err)
	}
	release()
	if slotCount(l) != 0 {
		t.Fatalf("slots = %d, want 0", slotCount(l))
	}
}

func TestJobLockTimeoutIsConflictAndReleasesReference(t *testing.T) {
	l := newJobLocks(20 * time.Millisecond)
	ctx := context.Background()

	release, err := l.acquire(ctx, "job-1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	_, err = l.acquire(ctx, "job-1")
	var conflict *domainrepair.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("contended acquire() error = %v, want ConflictError", err)
	}
	if slotCount(l) != 1 {
		t.Fatalf("slots = %d after timed-out waiter, want 1 (holder only)", slotCount(l))
	}

	release()
	if slotCount(l) != 0 {
		t.Fatalf("slots = %d after release, want 0", slotCount(l))
	}
}

func TestJobLockHandoffToWaiter(t *testing.T) {
	l := newJobLocks(time.Second)
	ctx := context.Background()

	release, err := l.acquire(ctx, "job-1")
	if err != nil {
		t.Fatalf("acquire() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		r, err := l.acquire(ctx, "job-1")
		if err != nil {
			done <- err
			return
		}
		r()
		done <- nil
	}()

	release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waiter acquire() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never acquired the lock")
	}

	if slotCount(l) != 0 {
		t.Fatalf("slots = %d after both released, want 0", slotCount(l))
	}
}
