package serialport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	// DefaultMaxLineBytes caps a buffered partial line.
	DefaultMaxLineBytes = 4096

	readChunkSize   = 1024
	maxReadsPerPoll = 64
)

// ErrFraming marks bytes that could not be turned into a text line.
var ErrFraming = errors.New("serialport: framing error")

// FramingError carries the discarded bytes.
type FramingError struct {
	Raw    []byte
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("serialport: %s (%d bytes discarded)", e.Reason, len(e.Raw))
}

// Is reports ErrFraming as a match.
func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}

// Framer splits a port's byte stream into newline-terminated text lines.
// It is not safe for concurrent use.
type Framer struct {
	r       io.Reader
	maxLine int
	onFault func(*FramingError)

	buf    []byte
	chunk  []byte
	closed bool

	// skipping drops bytes up to the next newline after an overlong partial line.
	skipping bool
}

// NewFramer returns a framer over r. onFault, if set, receives every
// discarded span.
func NewFramer(r io.Reader, maxLine int, onFault func(*FramingError)) *Framer {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Framer{
		r:       r,
		maxLine: maxLine,
		onFault: onFault,
		chunk:   make([]byte, readChunkSize),
	}
}

// Poll reads whatever the port has pending and returns the complete lines
// found, in arrival order. An empty result means nothing is waiting. Once
// the reader fails, Poll returns ErrTransportClosed forever; lines completed
// before the failure are still returned with it.
func (f *Framer) Poll() ([]string, error) {
	if f.closed {
		return nil, ErrTransportClosed
	}

	var lines []string
	for i := 0; i < maxReadsPerPoll; i++ {
		n, err := f.r.Read(f.chunk)
		if n > 0 {
			f.buf = append(f.buf, f.chunk[:n]...)
			lines = f.extract(lines)
		}
		if err != nil {
			f.closed = true
			f.buf = nil
			f.skipping = false
			return lines, fmt.Errorf("%w: %w", ErrTransportClosed, err)
		}
		if n == 0 {
			break
		}
	}
	return lines, nil
}

// Closed reports whether the underlying reader has ended.
func (f *Framer) Closed() bool {
	return f.closed
}

func (f *Framer) extract(lines []string) []string {
	for {
		idx := bytes.IndexByte(f.buf, '\n')
		if idx < 0 {
			break
		}
		raw := bytes.TrimSuffix(f.buf[:idx], []byte{'\r'})
		f.buf = f.buf[idx+1:]
		if f.skipping {
			f.skipping = false
			continue
		}
		switch {
		case len(raw) > f.maxLine:
			f.fault(raw, "line exceeds limit")
		case !utf8.Valid(raw):
			f.fault(raw, "invalid utf-8")
		default:
			lines = append(lines, string(raw))
		}
	}

	switch {
	case f.skipping:
		f.buf = f.buf[:0]
	case len(f.buf) > f.maxLine:
		f.fault(f.buf, "line exceeds limit")
		f.skipping = true
		f.buf = f.buf[:0]
	}
	// keep the backing array from growing without bound
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	return lines
}

func (f *Framer) fault(raw []byte, reason string) {
	if f.onFault == nil {
		return
	}
	f.onFault(&FramingError{Raw: append([]byte(nil), raw...), Reason: reason})
}
