package serialport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the rate the card readers are flashed with.
const DefaultBaudRate = 9600

// ErrTransportClosed is returned once the port has gone away.
var ErrTransportClosed = errors.New("serialport: transport closed")

// Port is the minimal surface the bridge needs from a serial port.
type Port interface {
	io.ReadWriteCloser
}

// Mode configures a port. ReadTimeout bounds each Read so a poll with no
// pending bytes returns instead of blocking.
type Mode struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// Opener opens a port by name. Tests swap in fakes.
type Opener func(name string, mode Mode) (Port, error)

// Open opens name as an 8N1 serial port.
func Open(name string, mode Mode) (Port, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, errors.New("serialport: empty port name")
	}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaudRate
	}

	p, err := serial.Open(name, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", name, err)
	}

	if mode.ReadTimeout > 0 {
		if err := p.SetReadTimeout(mode.ReadTimeout); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("serialport: set read timeout: %w", err)
		}
	}
	return p, nil
}

// NormalizeName reduces a display string such as "/dev/ttyUSB0 - USB Serial"
// to the bare port name.
func NormalizeName(id string) string {
	fields := strings.Fields(id)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
