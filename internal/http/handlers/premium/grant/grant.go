// Package grant реализует HTTP-обработчик выдачи премиум-статуса после оплаты.
//
// Handler принимает JSON-запрос с идентификатором платежа и тарифным планом,
// валидирует их, извлекает uid пользователя из контекста, проверяет платёж
// через сервис и возвращает результат выдачи в JSON-формате.
//
// В случае ошибок формируются соответствующие HTTP-ответы с описанием проблемы.
package grant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/http/middlewarectx"
	"github.com/filevault/entitlement-service/internal/http/response"
	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/models"
)

// Handler управляет HTTP-запросами на выдачу премиум-статуса.
//
// Использует логгер для записи операций и ошибок,
// сервис бизнес-логики для проверки платежа и выдачи гранта,
// а также валидатор для проверки структуры входных данных.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики выдачи премиума
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики выдачи премиум-статуса.
type Service interface {
	Grant(ctx context.Context, userUID string, req models.DummyGrantRequest) (bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Выдать премиум-статус
// @Description Проверяет платёж у провайдера и при успехе выдает текущему пользователю премиум-статус.
// @Tags Premium
// @Accept  json
// @Produce  json
// @Param request body models.DummyGrantRequest true "Платёж и тарифный план"
// @Success 200 {object} map[string]any "Результат выдачи"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при выдаче премиума"
// @Security BearerAuth
// @Router /premium/grant [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.premium.grant"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("payment_id", req.PaymentID))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	granted, err := h.service.Grant(r.Context(), userUID, req)
	if err != nil {
		log.Error("failed to grant premium", sl.Err(err))
		switch {
		case errors.Is(err, errs.ErrInvalidArgument):
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("invalid plan or payment id"))
		case errors.Is(err, errs.ErrUpstreamUnavailable):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("payment provider unavailable"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not grant premium"))
		}
		return
	}

	log.Info("premium grant processed",
		slog.String("user_uid", userUID),
		slog.Bool("granted", granted))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"granted": granted,
	}))
}
