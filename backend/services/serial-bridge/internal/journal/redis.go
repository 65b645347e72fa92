package journal

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultHistorySize is how many events a journal keeps.
	DefaultHistorySize = 200

	historyKey    = "serialbridge:traffic"
	eventsChannel = "serialbridge:traffic:events"
)

// RedisJournal stores traffic in a capped Redis list and publishes every event
// so external tools can follow the bridge.
type RedisJournal struct {
	client *redis.Client
	size   int64
}

// NewRedisJournal returns redis-backed journal.
func NewRedisJournal(client *redis.Client, size int) *RedisJournal {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &RedisJournal{client: client, size: int64(size)}
}

// Append implements Journal.
func (j *RedisJournal) Append(ctx context.Context, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	pipe := j.client.TxPipeline()
	pipe.RPush(ctx, historyKey, data)
	pipe.LTrim(ctx, historyKey, -j.size, -1)
	pipe.Publish(ctx, eventsChannel, data)
	_, err = pipe.Exec(ctx)
	return err
}

// Recent implements Journal.
func (j *RedisJournal) Recent(ctx context.Context, n int) ([]Event, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	raw, err := j.client.LRange(ctx, historyKey, start, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var evt Event
		if err := json.Unmarshal([]byte(item), &evt); err != nil {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}
