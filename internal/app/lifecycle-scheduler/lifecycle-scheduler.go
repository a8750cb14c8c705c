// Package lifecyclescheduler собирает приложение периодических задач
// обслуживания: снятие истёкшего премиума и чистка старых файлов.
package lifecyclescheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/filevault/entitlement-service/internal/cache"
	"github.com/filevault/entitlement-service/internal/config"
	"github.com/filevault/entitlement-service/internal/lib/rabbitmq"
	"github.com/filevault/entitlement-service/internal/metrics"
	reaperservice "github.com/filevault/entitlement-service/internal/services/reaper"
	sweeperservice "github.com/filevault/entitlement-service/internal/services/sweeper"
	"github.com/filevault/entitlement-service/internal/storage/blob"
	"github.com/filevault/entitlement-service/internal/storage/repository"
)

// App представляет приложение планировщика задач обслуживания.
type App struct {
	sweeperService *sweeperservice.Service
	reaperService  *reaperservice.Service
	metricsServer  *http.Server
	conn           *amqp.Connection
	ch             *amqp.Channel
	db             *repository.Storage
	logger         *slog.Logger
}

func waitForDB(db *repository.Storage) error {
	for range 10 {
		err := repository.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	queues := rabbitmq.GetLifecycleQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	counters := metrics.NewLifecycleCounters()
	publisher := rabbitmq.NewPublisher(ch)
	blobClient := blob.NewClient(cfg.BlobAPIURL, cfg.BlobAccessKey, cfg.BlobTimeout)

	sweeperService := sweeperservice.New(db, publisher, cacheRedis, counters, logger,
		cfg.SweepInterval, cfg.SweepBatchSize)
	reaperService := reaperservice.New(db, blobClient, counters, logger,
		cfg.ReapInterval, cfg.RetentionDays, cfg.SweepBatchSize)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:        cfg.AddressHTTP,
		Handler:     mux,
		ReadTimeout: cfg.TimeoutHTTP,
	}

	return &App{
		sweeperService: sweeperService,
		reaperService:  reaperService,
		metricsServer:  metricsServer,
		conn:           conn,
		ch:             ch,
		db:             db,
		logger:         logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

// Run запускает периодические задачи обслуживания.
func (a *App) Run(ctx context.Context) error {
	go a.sweeperService.Run(ctx)
	go a.reaperService.Run(ctx)

	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", slog.Any("err", err))
		}
	}()

	<-ctx.Done()

	a.logger.Info("shutting down lifecycle scheduler")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.metricsServer.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to shutdown metrics server", slog.Any("err", err))
	}

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}

	return nil
}
