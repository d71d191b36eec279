// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"livetrack/internal/adapter/events"
	mqttIngest "livetrack/internal/adapter/mqtt"
	"livetrack/internal/adapter/storage"
	"livetrack/internal/config"
	"livetrack/internal/logger"
	"livetrack/internal/server"
	"livetrack/internal/server/handlers"
	sessionService "livetrack/internal/service/session"
	"livetrack/internal/service/tracking"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "livetrack")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize location storage
	var locationStore tracking.LocationStore
	var db *pgxpool.Pool
	switch cfg.Database.Driver {
	case "memory":
		zlog.Warn("Using in-memory location store; fixes are lost on restart")
		locationStore = storage.NewMemoryLocationStore()
	default:
		db, err = initDatabase(ctx, cfg.Database)
		if err != nil {
			zlog.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer db.Close()

		pgStore := storage.NewLocationStore(db)
		if err := pgStore.Migrate(ctx); err != nil {
			zlog.Fatal("Failed to migrate database", zap.Error(err))
		}
		locationStore = pgStore
	}

	// Initialize session storage
	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		zlog.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Optional event bus
	var publisher tracking.EventPublisher
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = events.Connect(cfg.NATS, zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		publisher = events.NewNATSPublisher(natsConn, cfg.NATS.SubjectPrefix, zlog)
	}

	// Initialize services
	registry := tracking.NewRegistry()
	broadcaster := tracking.NewBroadcaster(locationStore, registry, publisher, zlog)
	queryService := tracking.NewQueryService(locationStore, publisher, zlog)
	sessions := sessionService.NewService(
		storage.NewSessionStore(redisClient, cfg.Redis.KeyPrefix, cfg.Redis.SessionTTL),
		zlog,
	)

	// Start the retention sweeper
	sweeper := tracking.NewRetentionSweeper(
		locationStore,
		tracking.RetentionConfig{
			Retention:     cfg.Tracking.Retention,
			SweepInterval: cfg.Tracking.SweepInterval,
		},
		zlog,
	)
	sweeper.Start(ctx)

	// Optional device ingest
	var ingest *mqttIngest.Ingestor
	if cfg.MQTT.Broker != "" {
		ingest = mqttIngest.NewIngestor(cfg.MQTT, broadcaster, cfg.Tracking.IngestTimeout, zlog)
		if err := ingest.Start(); err != nil {
			zlog.Fatal("Failed to start MQTT ingest", zap.Error(err))
		}
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		handlers.WebSocketConfig{
			WriteWait:      cfg.WebSocket.WriteWait,
			PongWait:       cfg.WebSocket.PongWait,
			PingPeriod:     cfg.WebSocket.PingPeriod,
			MaxMessageSize: cfg.WebSocket.MaxMessageSize,
			SendBuffer:     cfg.WebSocket.SendBuffer,
			IngestTimeout:  cfg.Tracking.IngestTimeout,
			AllowedOrigins: cfg.Server.CorsOrigins,
		},
		zlog,
		registry,
		broadcaster,
		queryService,
		sessions,
		queryService,
		sessions,
	)

	// Start HTTP server
	go func() {
		zlog.Info("Starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.String("location_store", cfg.Database.Driver),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	zlog.Info("Shutdown signal received", zap.String("signal", sig.String()))

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Stop retention sweeper
	if err := sweeper.Stop(shutdownCtx); err != nil {
		zlog.Error("Retention sweeper shutdown error", zap.Error(err))
	}

	if ingest != nil {
		ingest.Stop()
	}

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			zlog.Error("NATS drain error", zap.Error(err))
		}
	}

	zlog.Info("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize Redis connection
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return client, nil
}
