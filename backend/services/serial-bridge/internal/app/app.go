package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "cardbridge/backend/libs/redis"
	"cardbridge/backend/services/serial-bridge/internal/auth"
	"cardbridge/backend/services/serial-bridge/internal/bridge"
	appconfig "cardbridge/backend/services/serial-bridge/internal/config"
	"cardbridge/backend/services/serial-bridge/internal/db"
	"cardbridge/backend/services/serial-bridge/internal/http"
	"cardbridge/backend/services/serial-bridge/internal/http/handlers"
	"cardbridge/backend/services/serial-bridge/internal/journal"
	"cardbridge/backend/services/serial-bridge/internal/repository"
	"cardbridge/backend/services/serial-bridge/internal/serialport"
	"cardbridge/backend/services/serial-bridge/internal/service"
	"cardbridge/backend/services/serial-bridge/internal/ws"
)

// App wires dependencies for the serial bridge.
type App struct {
	cfg      *appconfig.Config
	bridge   *bridge.Bridge
	consoles *ws.Manager
	server   *httpserver.Server
	db       *sql.DB
	redis    *goredis.Client
	logger   *zap.Logger

	cancel context.CancelFunc
}

// New builds application graph.
func New(ctx context.Context, cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := repository.EnsureSchema(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	var traffic journal.Journal
	redisClient, err := libredis.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
	switch {
	case err == nil:
		traffic = journal.NewRedisJournal(redisClient, cfg.HistorySize())
	case errors.Is(err, libredis.ErrDisabled):
		traffic = journal.NewMemoryJournal(cfg.HistorySize())
	default:
		logger.Warn("redis unavailable, keeping traffic journal in memory", zap.Error(err))
		traffic = journal.NewMemoryJournal(cfg.HistorySize())
	}
	feed := journal.NewFeed(traffic, logger.Named("journal"))

	store := repository.NewStore(sqlDB)
	reconciler := service.NewReconciler(store, cfg.Database.StatementTimeout, logger.Named("reconciler"))

	br := bridge.New(bridge.Config{
		Mode: serialport.Mode{
			BaudRate:    cfg.Serial.BaudRate,
			ReadTimeout: cfg.Serial.ReadTimeout,
		},
		PollInterval: cfg.Serial.PollInterval,
		MaxLineBytes: cfg.Serial.MaxLineBytes,
	}, serialport.Open, reconciler, feed, logger.Named("bridge"))

	hasher := auth.NewBcryptHasher(0)
	var tokens *auth.TokenService
	if cfg.Console.JWTSecret != "" {
		if err := hasher.Validate(cfg.Console.PasswordHash); err != nil {
			sqlDB.Close()
			if redisClient != nil {
				redisClient.Close()
			}
			return nil, err
		}
		tokens = auth.NewTokenService(cfg.Console.JWTSecret, cfg.TokenTTL())
	}
	authenticator := auth.NewAuthenticator(cfg.Console.PasswordHash, hasher, tokens)

	baseCtx, cancel := context.WithCancel(context.Background())
	manager := ws.NewManager()
	console := ws.NewServer(baseCtx, manager, feed, br, cfg.HistorySize(), logger.Named("console"))

	routes := httpserver.Routes{
		Health:     handlers.NewHealthHandler(),
		Login:      handlers.NewLoginHandler(authenticator, logger),
		Status:     handlers.NewStatusHandler(br, manager),
		ListPorts:  handlers.NewListPortsHandler(serialport.ListPorts, logger),
		SelectPort: handlers.NewSelectPortHandler(br),
		Commands:   handlers.NewCommandsHandler(br, logger),
		Console:    console,
	}
	router := httpserver.NewRouter(routes, authenticator)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		cfg:      cfg,
		bridge:   br,
		consoles: manager,
		server:   server,
		db:       sqlDB,
		redis:    redisClient,
		logger:   logger,
		cancel:   cancel,
	}, nil
}

// Run opens the configured port, then polls it and serves the console until
// ctx is cancelled. A port that fails to open leaves the bridge idle.
func (a *App) Run(ctx context.Context) error {
	if port := a.cfg.Serial.Port; port != "" {
		if err := a.bridge.Open(ctx, port); err != nil {
			a.logger.Warn("bridge idle until a port is selected", zap.Error(err))
		}
	} else {
		a.logger.Info("no serial port configured, waiting for selection")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- a.bridge.Run(ctx) }()
	go func() { errCh <- a.server.Run(ctx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		err := <-errCh
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close disconnects consoles, releases the transport and the store together,
// then Redis.
func (a *App) Close() {
	a.consoles.CloseAll("bridge shutting down")
	a.cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := a.bridge.Close(); err != nil {
			a.logger.Warn("failed to close serial port", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				a.logger.Warn("failed to close db", zap.Error(err))
			}
		}
	}()
	wg.Wait()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
