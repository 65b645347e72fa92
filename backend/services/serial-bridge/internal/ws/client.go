package ws

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/journal"
)

const (
	readLimit  = 64 * 1024
	pongWait   = 60 * time.Second
	sendBuffer = 16
)

// CommandSender forwards operator-typed lines to the device.
type CommandSender interface {
	Send(ctx context.Context, line string) error
}

// Client is one operator console attached over WebSocket.
type Client struct {
	id           string
	ws           *websocket.Conn
	send         chan []byte
	events       <-chan journal.Event
	sender       CommandSender
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	onClose      func(id string)
}

// NewClient builds client. events is the live traffic subscription.
func NewClient(id string, conn *websocket.Conn, events <-chan journal.Event, sender CommandSender, writeTimeout, pingInterval time.Duration, logger *zap.Logger, onClose func(string)) *Client {
	return &Client{
		id:           id,
		ws:           conn,
		send:         make(chan []byte, sendBuffer),
		events:       events,
		sender:       sender,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		onClose:      onClose,
	}
}

// ID returns identifier.
func (c *Client) ID() string {
	return c.id
}

// Start replays history, then runs the read/write pumps until either side
// ends.
func (c *Client) Start(ctx context.Context, history []journal.Event) {
	for _, evt := range history {
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if err := c.write(websocket.TextMessage, data); err != nil {
			c.cleanup()
			return
		}
	}
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(readLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("console read closed", zap.String("client_id", c.id), zap.Error(err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		line := strings.TrimRight(string(message), "\r\n")
		if err := c.sender.Send(ctx, line); err != nil {
			c.logger.Warn("manual command not sent", zap.String("client_id", c.id), zap.Error(err))
			c.enqueueEvent(journal.Event{
				Direction: journal.DirectionFault,
				Line:      line,
				Detail:    err.Error(),
				At:        time.Now().UTC(),
			})
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, []byte{})
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case evt, ok := <-c.events:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) enqueueEvent(evt journal.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("dropping console message, buffer full", zap.String("client_id", c.id))
	}
}

func (c *Client) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// Close sends a going-away frame and drops the connection. The read pump then
// exits and detaches the client.
func (c *Client) Close(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	_ = c.ws.Close()
}

func (c *Client) cleanup() {
	_ = c.ws.Close()
	if c.onClose != nil {
		c.onClose(c.id)
	}
}
