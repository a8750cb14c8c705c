// Package entitlementapi собирает HTTP-приложение управления премиум-статусом.
package entitlementapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/filevault/entitlement-service/internal/http/handlers/health"
	"github.com/filevault/entitlement-service/internal/http/handlers/notification/broadcastsend"
	"github.com/filevault/entitlement-service/internal/http/handlers/premium/grant"
	"github.com/filevault/entitlement-service/internal/http/middlewarectx"
	broadcastservice "github.com/filevault/entitlement-service/internal/services/broadcast"
	entitlementservice "github.com/filevault/entitlement-service/internal/services/entitlement"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, tokenParser middlewarectx.TokenParser,
	entitlementService *entitlementservice.Service, broadcastService *broadcastservice.Service) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokenParser, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Post("/premium/grant", grant.New(logger, entitlementService).ServeHTTP)
			r.Post("/notifications/broadcast", broadcastsend.New(logger, broadcastService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
