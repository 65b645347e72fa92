package protocol

import (
	"fmt"
	"strings"
)

// ReplyKind distinguishes the two outbound reply shapes.
type ReplyKind int

const (
	// ReplyFlags carries a card's configured flags.
	ReplyFlags ReplyKind = iota
	// ReplyNoMatch reports that the queried card does not exist.
	ReplyNoMatch
)

// Reply is a line the bridge sends back to the device.
type Reply struct {
	Kind        ReplyKind
	CardID      int64
	Pressure    *bool
	Temperature *bool
	Humidity    *bool
}

// FlagsReply answers a query for an existing card.
func FlagsReply(cardID int64, pressure, temperature, humidity *bool) *Reply {
	return &Reply{
		Kind:        ReplyFlags,
		CardID:      cardID,
		Pressure:    pressure,
		Temperature: temperature,
		Humidity:    humidity,
	}
}

// NoMatchReply answers a query for an unknown card.
func NoMatchReply(cardID int64) *Reply {
	return &Reply{Kind: ReplyNoMatch, CardID: cardID}
}

// String renders the reply without the line terminator.
func (r *Reply) String() string {
	if r.Kind == ReplyNoMatch {
		return fmt.Sprintf("Error: no match for card %d in the database.", r.CardID)
	}
	return fmt.Sprintf("%s:%s,%s:%s,%s:%s",
		FieldPressure, renderFlag(r.Pressure),
		FieldTemperature, renderFlag(r.Temperature),
		FieldHumidity, renderFlag(r.Humidity),
	)
}

// renderFlag matches the spelling device firmware already expects.
func renderFlag(v *bool) string {
	switch {
	case v == nil:
		return "None"
	case *v:
		return "True"
	default:
		return "False"
	}
}

// EncodeReply produces the newline-terminated wire form of r.
func EncodeReply(r *Reply) []byte {
	return EncodeLine(r.String())
}

// EncodeLine terminates an outbound line. Embedded line breaks are stripped so
// one call always yields exactly one device line.
func EncodeLine(line string) []byte {
	line = strings.NewReplacer("\r", "", "\n", "").Replace(line)
	out := make([]byte, 0, len(line)+1)
	out = append(out, line...)
	return append(out, '\n')
}
