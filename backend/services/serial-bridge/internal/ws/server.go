package ws

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cardbridge/backend/services/serial-bridge/internal/journal"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// Feed is the traffic source consoles attach to.
type Feed interface {
	Subscribe(buffer int) (<-chan journal.Event, func())
	History(ctx context.Context, n int) ([]journal.Event, error)
}

// Server upgrades HTTP requests to console WebSockets.
type Server struct {
	ctx          context.Context
	manager      *Manager
	feed         Feed
	sender       CommandSender
	historySize  int
	writeTimeout time.Duration
	pingInterval time.Duration
	logger       *zap.Logger
	upgrader     websocket.Upgrader
	seq          atomic.Uint64
}

// NewServer builds ws server. Clients live until ctx ends or they disconnect.
func NewServer(ctx context.Context, manager *Manager, feed Feed, sender CommandSender, historySize int, logger *zap.Logger) *Server {
	return &Server{
		ctx:          ctx,
		manager:      manager,
		feed:         feed,
		sender:       sender,
		historySize:  historySize,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles GET /api/console.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	history, err := s.feed.History(r.Context(), s.historySize)
	if err != nil {
		s.logger.Warn("failed to load traffic history", zap.Error(err))
	}

	id := fmt.Sprintf("console-%d", s.seq.Add(1))
	events, unsubscribe := s.feed.Subscribe(0)
	ctx, cancel := context.WithCancel(s.ctx)
	client := NewClient(id, conn, events, s.sender, s.writeTimeout, s.pingInterval, s.logger, func(id string) {
		s.manager.Remove(id)
		unsubscribe()
		cancel()
	})
	s.manager.Add(client)

	go client.Start(ctx, history)
	s.logger.Info("console connected", zap.String("client_id", id), zap.String("remote", r.RemoteAddr))
}
