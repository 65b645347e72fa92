package journal

import (
	"context"
	"sync"
)

// MemoryJournal is a fixed-size ring used when no Redis is configured.
type MemoryJournal struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewMemoryJournal returns a ring holding up to size events.
func NewMemoryJournal(size int) *MemoryJournal {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryJournal{events: make([]Event, size)}
}

// Append implements Journal.
func (j *MemoryJournal) Append(_ context.Context, evt Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events[j.next] = evt
	j.next = (j.next + 1) % len(j.events)
	if j.next == 0 {
		j.full = true
	}
	return nil
}

// Recent implements Journal.
func (j *MemoryJournal) Recent(_ context.Context, n int) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ordered := make([]Event, 0, len(j.events))
	if j.full {
		ordered = append(ordered, j.events[j.next:]...)
	}
	ordered = append(ordered, j.events[:j.next]...)

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered, nil
}
