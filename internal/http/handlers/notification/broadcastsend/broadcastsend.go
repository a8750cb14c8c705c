// Package broadcastsend реализует HTTP-обработчик массовой рассылки уведомлений.
//
// Handler принимает JSON-запрос с сегментом получателей и текстом уведомления,
// валидирует их, проверяет роль вызывающего из контекста, запускает рассылку
// через сервис и возвращает число переданных провайдеру токенов.
package broadcastsend

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

// Handler управляет HTTP-запросами на массовую рассылку уведомлений.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис бизнес-логики рассылки
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает интерфейс бизнес-логики рассылки.
type Service interface {
	Broadcast(ctx context.Context, callerRole string, req models.DummyBroadcastRequest) (int, error)
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
// @Summary Разослать уведомление по сегменту
// @Description Отправляет push-уведомление всем пользователям выбранного сегмента. Доступно только администраторам.
// @Tags Notifications
// @Accept  json
// @Produce  json
// @Param request body models.DummyBroadcastRequest true "Сегмент и текст уведомления"
// @Success 200 {object} map[string]any "Число переданных провайдеру токенов"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Провайдер уведомлений недоступен"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при рассылке"
// @Security BearerAuth
// @Router /notifications/broadcast [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.notification.broadcastsend"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("target", req.Target))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	role, ok := r.Context().Value(middlewarectx.Role).(string)
	if !ok || role == "" {
		log.Error("role not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	submitted, err := h.service.Broadcast(r.Context(), role, req)
	if err != nil {
		log.Error("failed to broadcast notification", sl.Err(err))
		switch {
		case errors.Is(err, errs.ErrPermissionDenied):
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("admin role required"))
		case errors.Is(err, errs.ErrUpstreamUnavailable):
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("push provider unavailable"))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not broadcast notification"))
		}
		return
	}

	log.Info("broadcast accepted",
		slog.String("target", req.Target),
		slog.Int("submitted", submitted))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"sent_to": submitted,
	}))
}
