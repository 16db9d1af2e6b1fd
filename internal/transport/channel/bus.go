package channel

import (
	"context"
	"sync"

	"repairtrack/internal/domain/repair"
)

// Bus fans appended timeline events out to the notification dispatcher and
// to per-job live subscribers. Dispatcher delivery is backpressured through
// a buffered channel; subscriber delivery is best-effort and a slow
// subscriber is dropped (clients reconcile by re-fetching the timeline).
type Bus struct {
	mu          sync.RWMutex
	dispatch    chan repair.Event
	subscribers map[string]map[*Subscription]struct{}
	subBuffer   int
}

type Subscription struct {
	C chan repair.Event

	bus   *Bus
	jobID string
	once  sync.Once
}

func NewBus(dispatchBuffer int, subscriberBuffer int) *Bus {
	if dispatchBuffer <= 0 {
		dispatchBuffer = 64
	}
	if subscriberBuffer <= 0 {
		subscriberBuffer = 16
	}
	return &Bus{
		dispatch:    make(chan repair.Event, dispatchBuffer),
		subscribers: make(map[string]map[*Subscription]struct{}),
		subBuffer:   subscriberBuffer,
	}
}

// Publish hands the event to the dispatcher feed (blocking on a full buffer
// until ctx ends) and then to any live subscribers of the event's job.
func (b *Bus) Publish(ctx context.Context, ev repair.Event) error {
	select {
	case b.dispatch <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.RLock()
	subs := b.subscribers[ev.JobID]
	dropped := make([]*Subscription, 0)
	for sub := range subs {
		select {
		case sub.C <- ev:
		default:
			dropped = append(dropped, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range dropped {
		sub.Close()
	}
	return nil
}

// Dispatch is the feed the notification dispatcher consumes.
func (b *Bus) Dispatch() <-chan repair.Event {
	return b.dispatch
}

func (b *Bus) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		C:     make(chan repair.Event, b.subBuffer),
		bus:   b,
		jobID: jobID,
	}

	b.mu.Lock()
	if b.subscribers[jobID] == nil {
		b.subscribers[jobID] = make(map[*Subscription]struct{})
	}
	b.subscribers[jobID][sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Close detaches the subscription and closes its channel. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		if subs := s.bus.subscribers[s.jobID]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.bus.subscribers, s.jobID)
			}
		}
		s.bus.mu.Unlock()
		close(s.C)
	})
}
