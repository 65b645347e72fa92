package journal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	appendTimeout = 250 * time.Millisecond
	appendBackoff = 5 * time.Second
)

// Feed records events to a Journal and fans them out to live subscribers.
// Slow subscribers lose events rather than stalling the poll loop. After a
// failed append the journal is skipped for appendBackoff.
type Feed struct {
	journal Journal
	logger  *zap.Logger
	now     func() time.Time

	jmu         sync.Mutex
	pausedUntil time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewFeed returns feed.
func NewFeed(journal Journal, logger *zap.Logger) *Feed {
	return &Feed{
		journal: journal,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]chan Event),
	}
}

// Publish stamps, stores and broadcasts evt. Journal failures are logged only.
func (f *Feed) Publish(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = f.now().UTC()
	}

	f.record(ctx, evt)

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		select {
		case ch <- evt:
		default:
			f.logger.Debug("dropping traffic event for slow subscriber", zap.Int("subscriber", id))
		}
	}
}

func (f *Feed) record(ctx context.Context, evt Event) {
	if f.journal == nil {
		return
	}

	f.jmu.Lock()
	defer f.jmu.Unlock()
	if f.now().Before(f.pausedUntil) {
		return
	}

	appendCtx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()
	if err := f.journal.Append(appendCtx, evt); err != nil {
		f.pausedUntil = f.now().Add(appendBackoff)
		f.logger.Warn("failed to journal traffic event, pausing journal",
			zap.Duration("backoff", appendBackoff),
			zap.Error(err),
		)
	}
}

// Subscribe registers a live listener. The returned func unsubscribes and
// closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// History returns up to n stored events, oldest first.
func (f *Feed) History(ctx context.Context, n int) ([]Event, error) {
	if f.journal == nil {
		return nil, nil
	}
	return f.journal.Recent(ctx, n)
}
