package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/melihalgin1/CryptoVault/internal/account"
	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/internal/config"
	httphandler "github.com/melihalgin1/CryptoVault/internal/handler/http"
	"github.com/melihalgin1/CryptoVault/internal/identity"
	"github.com/melihalgin1/CryptoVault/internal/prices"
	"github.com/melihalgin1/CryptoVault/internal/repository"
	"github.com/melihalgin1/CryptoVault/internal/session"
	"github.com/melihalgin1/CryptoVault/internal/websocket"
	"github.com/melihalgin1/CryptoVault/storage/postgres"
	"github.com/melihalgin1/CryptoVault/storage/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

type App struct {
	cfg         *config.Config
	log         *slog.Logger
	httpServer  *http.Server
	storage     *postgres.Storage
	redisClient *goredis.Client
	kafkaWriter *kafka.Writer
	bus         identity.Bus
	identity    *identity.Service
	hub         *session.Hub
	wsManager   *websocket.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())

	storage, err := postgres.New(cfg.Database)
	if err != nil {
		panic(fmt.Errorf("failed to init storage: %w", err))
	}

	var (
		redisClient *goredis.Client
		bus         identity.Bus
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			panic(fmt.Errorf("failed to connect to redis: %w", err))
		}
		bus, err = redis.NewEventBus(ctx, redisClient, cfg.Redis.Channel, log)
		if err != nil {
			panic(fmt.Errorf("failed to subscribe to identity events: %w", err))
		}
	} else {
		log.Info("redis not configured, identity events stay in-process")
		bus = identity.NewLocalBus(1000)
	}

	var fetcher prices.Fetcher = prices.NewClient(cfg.Prices.BaseURL, cfg.Prices.APIKey, cfg.Prices.Timeout)
	if redisClient != nil {
		fetcher = prices.NewCachedFetcher(fetcher, redisClient, cfg.Prices.CacheTTL, log)
	}
	var kafkaWriter *kafka.Writer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaWriter = prices.NewKafkaWriter(cfg.Kafka)
		fetcher = prices.NewPublishingFetcher(fetcher, kafkaWriter, log)
	}
	fetcher = prices.NewSharedFetcher(fetcher, cfg.Prices.CacheTTL)

	normalizer := coin.Default
	if cfg.AliasesFile != "" {
		aliases, err := coin.LoadAliases(cfg.AliasesFile)
		if err != nil {
			panic(fmt.Errorf("failed to load coin aliases: %w", err))
		}
		normalizer = coin.NewNormalizer(aliases)
		if rejected := normalizer.Rejected(); len(rejected) > 0 {
			log.Warn("ignoring cyclic coin aliases", "file", cfg.AliasesFile, "aliases", rejected)
		}
	}

	identityService := identity.NewService(storage.DB, identity.NewLogMailer(log), bus, cfg.Security, log)
	profilesRepo := repository.NewProfilesRepository(storage.DB)
	accounts := account.NewManager(profilesRepo, identityService, log)

	hub := session.NewHub(session.Options{
		Fetcher:      fetcher,
		Profiles:     profilesRepo,
		Normalizer:   normalizer,
		PollInterval: cfg.Prices.PollInterval,
		SyncDelay:    cfg.Sync.Debounce,
		SyncTimeout:  cfg.Sync.Timeout,
		Log:          log,
	}, cfg.Session.IdleTTL)

	wsManager := websocket.NewManager(log)

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())
	httpHandler := httphandler.NewHandler(identityService, accounts, hub, wsManager, log, cfg.Security.JWTSecret, cfg.Session)
	httpHandler.RegisterRoutes(ginEngine)

	httpServer := &http.Server{
		Addr:    net.JoinHostPort("", strconv.FormatUint(uint64(cfg.HTTP.Port), 10)),
		Handler: ginEngine,
	}

	return &App{
		cfg:         cfg,
		log:         log,
		httpServer:  httpServer,
		storage:     storage,
		redisClient: redisClient,
		kafkaWriter: kafkaWriter,
		bus:         bus,
		identity:    identityService,
		hub:         hub,
		wsManager:   wsManager,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (a *App) Run() error {
	errChan := make(chan error, 1)
	a.log.Info("starting application components...")

	go func() {
		a.log.Info("websocket manager started")
		a.wsManager.Run(a.ctx)
		a.log.Info("websocket manager stopped")
	}()

	go a.hub.Run(a.ctx, a.bus.Events(), a.cfg.Session.SweepInterval)

	go a.startTokenCleanup()

	go func() {
		if err := a.runHTTP(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	err := <-errChan
	a.log.Warn("shutting down application due to an error", "error", err)

	a.Stop()
	return err
}

func (a *App) Stop() {
	a.log.Info("stopping application components gracefully...")

	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.HTTP.Timeout)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("failed to gracefully shutdown HTTP server", "error", err)
	} else {
		a.log.Info("HTTP server stopped")
	}

	a.hub.Shutdown()
	a.log.Info("dashboard sessions closed")

	if err := a.bus.Close(); err != nil {
		a.log.Warn("failed to close identity event bus", "error", err)
	}

	if a.kafkaWriter != nil {
		if err := a.kafkaWriter.Close(); err != nil {
			a.log.Warn("failed to close kafka writer", "error", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("failed to close redis client", "error", err)
		}
	}

	if err := a.storage.Stop(); err != nil {
		a.log.Error("failed to stop storage", "error", err)
	} else {
		a.log.Info("database connection closed")
	}
}

func (a *App) startTokenCleanup() {
	ticker := time.NewTicker(a.cfg.Security.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.log.Info("running expired tokens cleanup...")
			deleted, err := a.identity.DeleteExpiredTokens(a.ctx)
			if err != nil {
				a.log.Error("failed to cleanup expired tokens", slog.Any("error", err))
				continue
			}
			a.log.Info("expired tokens cleanup finished successfully", "deleted", deleted)
		}
	}
}

func (a *App) runHTTP() error {
	const op = "app.runHTTP"

	a.log.Info("HTTP server is running", "addr", a.httpServer.Addr)

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
