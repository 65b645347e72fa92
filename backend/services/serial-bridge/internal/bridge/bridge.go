package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/journal"
	"cardbridge/backend/services/serial-bridge/internal/protocol"
	"cardbridge/backend/services/serial-bridge/internal/serialport"
	"cardbridge/backend/services/serial-bridge/internal/service"
)

const defaultPollInterval = 100 * time.Millisecond

// Engine applies one parsed command.
type Engine interface {
	Apply(ctx context.Context, cmd protocol.Command) (*protocol.Reply, error)
}

// Publisher receives every traffic event.
type Publisher interface {
	Publish(ctx context.Context, evt journal.Event)
}

// Config holds poll loop settings.
type Config struct {
	Mode         serialport.Mode
	PollInterval time.Duration
	MaxLineBytes int
}

// Status is a snapshot of the bridge for operators.
type Status struct {
	Port           string `json:"port"`
	Open           bool   `json:"open"`
	LinesProcessed uint64 `json:"lines_processed"`
	FramingFaults  uint64 `json:"framing_faults"`
}

// Bridge is the poll loop: it owns the transport, frames inbound bytes, runs
// each line through parser and engine in arrival order and writes replies back.
type Bridge struct {
	cfg    Config
	open   serialport.Opener
	parser *protocol.Parser
	engine Engine
	feed   Publisher
	logger *zap.Logger

	openMu sync.Mutex

	mu       sync.Mutex
	port     serialport.Port
	framer   *serialport.Framer
	portName string

	// writeMu keeps engine replies and manual sends from interleaving.
	writeMu sync.Mutex

	processed     atomic.Uint64
	framingFaults atomic.Uint64
}

// New returns an idle bridge; call Open to attach a transport.
func New(cfg Config, opener serialport.Opener, engine Engine, feed Publisher, logger *zap.Logger) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Mode.BaudRate <= 0 {
		cfg.Mode.BaudRate = serialport.DefaultBaudRate
	}
	if opener == nil {
		opener = serialport.Open
	}
	return &Bridge{
		cfg:    cfg,
		open:   opener,
		parser: protocol.NewParser(),
		engine: engine,
		feed:   feed,
		logger: logger,
	}
}

// Open attaches the named transport, closing any previous one first. A
// failure leaves the bridge idle; there is no retry.
func (b *Bridge) Open(ctx context.Context, name string) error {
	name = serialport.NormalizeName(name)
	if name == "" {
		return fmt.Errorf("%w: empty port name", ErrOpenFailed)
	}

	b.openMu.Lock()
	defer b.openMu.Unlock()

	if err := b.Close(); err != nil {
		b.logger.Warn("failed to close previous transport", zap.Error(err))
	}

	port, err := b.open(name, b.cfg.Mode)
	if err != nil {
		b.logger.Error("error opening serial port",
			zap.String("fault", "transport_open"),
			zap.String("port", name),
			zap.Error(err),
		)
		b.publish(ctx, journal.DirectionFault, name, err.Error())
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	b.mu.Lock()
	b.port = port
	b.portName = name
	b.framer = serialport.NewFramer(port, b.cfg.MaxLineBytes, b.onFramingFault)
	b.mu.Unlock()

	b.logger.Info("serial port opened", zap.String("port", name), zap.Int("baud_rate", b.cfg.Mode.BaudRate))
	return nil
}

// Close detaches and closes the current transport, if any.
func (b *Bridge) Close() error {
	b.mu.Lock()
	port := b.port
	b.port = nil
	b.framer = nil
	b.mu.Unlock()

	if port == nil {
		return nil
	}
	return port.Close()
}

// Run polls the transport every PollInterval until ctx ends. The interval is
// measured from the end of one tick to the start of the next.
func (b *Bridge) Run(ctx context.Context) error {
	timer := time.NewTimer(b.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			b.Tick(ctx)
			timer.Reset(b.cfg.PollInterval)
		}
	}
}

// Tick drains every line currently buffered by the transport and handles
// them one by one. It is a no-op while no transport is open.
func (b *Bridge) Tick(ctx context.Context) {
	b.mu.Lock()
	framer := b.framer
	b.mu.Unlock()
	if framer == nil {
		return
	}

	lines, err := framer.Poll()
	for _, line := range lines {
		if ctx.Err() != nil {
			return
		}
		b.handleLine(ctx, line)
	}

	if err != nil {
		b.logger.Warn("serial transport closed", zap.Error(err))
		b.detach(framer)
	}
}

// Send writes an operator-typed line to the device.
func (b *Bridge) Send(ctx context.Context, line string) error {
	if err := b.write(ctx, protocol.EncodeLine(line), line); err != nil {
		if errors.Is(err, ErrNotOpen) {
			b.logger.Warn("serial port is not open", zap.String("line", line))
		}
		return err
	}
	return nil
}

// Status reports the current transport and counters.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{
		Port:           b.portName,
		Open:           b.port != nil,
		LinesProcessed: b.processed.Load(),
		FramingFaults:  b.framingFaults.Load(),
	}
}

func (b *Bridge) handleLine(ctx context.Context, line string) {
	b.processed.Add(1)
	b.publish(ctx, journal.DirectionRX, line, "")

	cmd, err := b.parser.Parse(line)
	if err != nil {
		b.logger.Warn("dropping malformed command",
			zap.String("fault", "parse"),
			zap.String("line", line),
			zap.Error(err),
		)
		b.publish(ctx, journal.DirectionFault, line, err.Error())
		return
	}
	if _, ok := cmd.(protocol.Unrecognized); ok {
		b.logger.Debug("ignoring unrecognized line", zap.String("line", line))
		return
	}

	reply, err := b.engine.Apply(ctx, cmd)
	if err != nil {
		b.reportApplyError(ctx, cmd, line, err)
	}
	if reply == nil {
		return
	}

	if err := b.write(ctx, protocol.EncodeReply(reply), reply.String()); err != nil {
		b.logger.Error("failed to write reply",
			zap.String("fault", "transport_write"),
			zap.String("reply", reply.String()),
			zap.Error(err),
		)
		b.publish(ctx, journal.DirectionFault, reply.String(), err.Error())
	}
}

func (b *Bridge) reportApplyError(ctx context.Context, cmd protocol.Command, line string, err error) {
	fields := []zap.Field{
		zap.String("command", cmd.Name()),
		zap.String("line", line),
		zap.Error(err),
	}
	switch {
	case errors.Is(err, service.ErrUnknownCard):
		b.logger.Warn("card does not exist in the cards table", append(fields, zap.String("fault", "unknown_card"))...)
	case errors.Is(err, service.ErrStoreUnavailable):
		b.logger.Error("store rejected command", append(fields, zap.String("fault", "store_unavailable"))...)
	default:
		b.logger.Error("command failed", fields...)
	}
	b.publish(ctx, journal.DirectionFault, line, err.Error())
}

func (b *Bridge) write(ctx context.Context, payload []byte, line string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	port := b.port
	b.mu.Unlock()
	if port == nil {
		return ErrNotOpen
	}

	if _, err := port.Write(payload); err != nil {
		return fmt.Errorf("bridge: write: %w", err)
	}
	b.publish(ctx, journal.DirectionTX, line, "")
	return nil
}

func (b *Bridge) detach(framer *serialport.Framer) {
	b.mu.Lock()
	if b.framer != framer {
		b.mu.Unlock()
		return
	}
	port := b.port
	b.port = nil
	b.framer = nil
	b.mu.Unlock()

	if port != nil {
		_ = port.Close()
	}
}

func (b *Bridge) onFramingFault(fe *serialport.FramingError) {
	b.framingFaults.Add(1)
	b.logger.Warn("discarding undecodable serial bytes",
		zap.String("fault", "framing"),
		zap.Binary("raw", fe.Raw),
		zap.Error(fe),
	)
	b.publish(context.Background(), journal.DirectionFault, "", fe.Error())
}

func (b *Bridge) publish(ctx context.Context, dir journal.Direction, line, detail string) {
	if b.feed == nil {
		return
	}
	b.feed.Publish(ctx, journal.Event{Direction: dir, Line: line, Detail: detail})
}
