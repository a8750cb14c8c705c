package entitlementapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/filevault/entitlement-service/internal/cache"
	"github.com/filevault/entitlement-service/internal/config"
	jwtlib "github.com/filevault/entitlement-service/internal/lib/jwt"
	"github.com/filevault/entitlement-service/internal/migrations"
	"github.com/filevault/entitlement-service/internal/paymentprovider"
	"github.com/filevault/entitlement-service/internal/push"
	broadcastservice "github.com/filevault/entitlement-service/internal/services/broadcast"
	entitlementservice "github.com/filevault/entitlement-service/internal/services/entitlement"
	"github.com/filevault/entitlement-service/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	providerClient := paymentprovider.NewClient(cfg.PaymentAPIURL, cfg.PaymentSecretKey, cfg.PaymentTimeout)
	pushClient := push.NewClient(cfg.PushAPIURL, cfg.PushServerKey, cfg.PushTimeout)
	tokenMaker := jwtlib.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	entitlementService := entitlementservice.New(db, providerClient, cacheRedis, logger)
	broadcastService := broadcastservice.New(db, pushClient, logger, cfg.ChunkSize)

	router := chi.NewRouter()

	RegisterRoutes(router, logger, tokenMaker, entitlementService, broadcastService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
