// Package event is the in-process job lifecycle bus. The runner
// publishes; API handlers or tests may subscribe with a filter.
package event

import (
	"context"
	"sync"
	"time"
)

// Type represents the type of event.
type Type string

const (
	TypeJobCreated Type = "job_created"
	TypeJobStarted Type = "job_started"
	TypeJobDone    Type = "job_done"
	TypeJobFailed  Type = "job_failed"
)

// Kind names the job family an event belongs to.
type Kind string

const (
	KindImport Kind = "import"
	KindMerge  Kind = "merge"
	KindClone  Kind = "clone"
)

// Event represents one job lifecycle transition.
type Event struct {
	Type         Type      `json:"type"`
	Kind         Kind      `json:"kind"`
	JobID        uint      `json:"job_id"`
	ValidationID uint      `json:"validation_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Filter defines criteria for receiving events.
type Filter struct {
	Kind  Kind
	JobID uint
	Types []Type
}

// Bus defines the event bus interface.
type Bus interface {
	Publish(e Event)
	Subscribe(ctx context.Context, filter Filter) (<-chan Event, error)
}

type bus struct {
	subscribers map[chan Event]Filter
	mu          sync.RWMutex
}

// New creates a new event bus.
func New() Bus {
	return &bus{
		subscribers: make(map[chan Event]Filter),
	}
}

func (b *bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, filter := range b.subscribers {
		if b.matches(filter, e) {
			select {
			case ch <- e:
			default:
				// subscriber is full, drop
			}
		}
	}
}

func (b *bus) Subscribe(ctx context.Context, filter Filter) (<-chan Event, error) {
	ch := make(chan Event, 100)

	b.mu.Lock()
	b.subscribers[ch] = filter
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}

func (b *bus) matches(filter Filter, e Event) bool {
	if filter.Kind != "" && filter.Kind != e.Kind {
		return false
	}
	if filter.JobID != 0 && filter.JobID != e.JobID {
		return false
	}
	if len(filter.Types) > 0 {
		found := false
		for _, t := range filter.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
