package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryJournalRing(t *testing.T) {
	j := NewMemoryJournal(3)
	ctx := context.Background()

	for _, line := range []string{"a", "b"} {
		_ = j.Append(ctx, Event{Direction: DirectionRX, Line: line})
	}
	got, _ := j.Recent(ctx, 0)
	if len(got) != 2 || got[0].Line != "a" || got[1].Line != "b" {
		t.Fatalf("unexpected events %+v", got)
	}

	for _, line := range []string{"c", "d", "e"} {
		_ = j.Append(ctx, Event{Direction: DirectionRX, Line: line})
	}
	got, _ = j.Recent(ctx, 0)
	if len(got) != 3 || got[0].Line != "c" || got[2].Line != "e" {
		t.Fatalf("expected oldest evicted, got %+v", got)
	}

	got, _ = j.Recent(ctx, 2)
	if len(got) != 2 || got[0].Line != "d" {
		t.Fatalf("expected last two, got %+v", got)
	}
}

type failingJournal struct{}

func (failingJournal) Append(context.Context, Event) error { return errors.New("redis down") }
func (failingJournal) Recent(context.Context, int) ([]Event, error) {
	return nil, errors.New("redis down")
}

func TestFeedFanOut(t *testing.T) {
	feed := NewFeed(NewMemoryJournal(10), zap.NewNop())
	a, cancelA := feed.Subscribe(4)
	b, cancelB := feed.Subscribe(4)
	defer cancelB()

	feed.Publish(context.Background(), Event{Direction: DirectionTX, Line: "GET:1"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case evt := <-ch:
			if evt.Line != "GET:1" || evt.At.IsZero() {
				t.Fatalf("unexpected event %+v", evt)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive event")
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("channel should be closed after unsubscribe")
	}

	history, err := feed.History(context.Background(), 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one stored event, got %+v, %v", history, err)
	}
}

func TestFeedSurvivesJournalFailureAndSlowSubscribers(t *testing.T) {
	feed := NewFeed(failingJournal{}, zap.NewNop())
	ch, cancel := feed.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			feed.Publish(context.Background(), Event{Direction: DirectionRX, Line: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Fatalf("expected buffered event, got %d", len(ch))
	}
}

// stalledJournal blocks every Append until its context ends.
type stalledJournal struct {
	mu    sync.Mutex
	calls int
}

func (j *stalledJournal) Append(ctx context.Context, _ Event) error {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (j *stalledJournal) Recent(context.Context, int) ([]Event, error) { return nil, nil }

func (j *stalledJournal) appendCalls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func TestFeedPausesStalledJournal(t *testing.T) {
	stalled := &stalledJournal{}
	feed := NewFeed(stalled, zap.NewNop())
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return clock }
	ch, cancel := feed.Subscribe(16)
	defer cancel()

	start := time.Now()
	for i := 0; i < 10; i++ {
		feed.Publish(context.Background(), Event{Direction: DirectionRX, Line: "GET:1"})
	}
	if elapsed := time.Since(start); elapsed > appendTimeout+500*time.Millisecond {
		t.Fatalf("a stalled journal must cost one timeout, took %s", elapsed)
	}
	if n := stalled.appendCalls(); n != 1 {
		t.Fatalf("expected journal skipped after first failure, got %d appends", n)
	}
	if len(ch) != 10 {
		t.Fatalf("subscribers must still see every event, got %d", len(ch))
	}

	clock = clock.Add(appendBackoff + time.Second)
	feed.Publish(context.Background(), Event{Direction: DirectionTX, Line: "ok"})
	if n := stalled.appendCalls(); n != 2 {
		t.Fatalf("expected journal retried after backoff, got %d appends", n)
	}
}
