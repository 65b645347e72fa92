package journal

import (
	"context"
	"time"
)

// Direction tags a traffic event.
type Direction string

// Traffic directions.
const (
	DirectionRX    Direction = "rx"
	DirectionTX    Direction = "tx"
	DirectionFault Direction = "fault"
)

// Event is one entry of serial traffic as shown to operators.
type Event struct {
	Direction Direction `json:"direction"`
	Line      string    `json:"line"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// Journal keeps a bounded history of traffic events.
type Journal interface {
	Append(ctx context.Context, evt Event) error
	// Recent returns up to n events, oldest first.
	Recent(ctx context.Context, n int) ([]Event, error)
}
