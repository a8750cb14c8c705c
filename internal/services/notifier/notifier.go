// Package notifier реализует воркер доставки уведомлений о завершении
// подписки: читает события демоции из очереди и шлёт push на устройство.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/push"
)

// PushSender отправляет одно уведомление на пакет токенов.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string) (*push.SendResponse, error)
}

// Service обрабатывает события демоции из очереди.
type Service struct {
	sender PushSender
	log    *slog.Logger
}

// New создает новый экземпляр Service.
func New(sender PushSender, log *slog.Logger) *Service {
	return &Service{
		sender: sender,
		log:    log,
	}
}

// HandleDemotionEvent разбирает событие демоции и доставляет push
// владельцу устройства. Событие без токена подтверждается без отправки:
// повторная доставка ему не поможет. Ошибка провайдера возвращает
// сообщение в очередь.
func (s *Service) HandleDemotionEvent(body []byte) error {
	const op = "notifier.HandleDemotionEvent"

	var event models.DemotionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Битое сообщение при requeue зациклится, поэтому подтверждаем.
		s.log.Error("dropping malformed demotion event", sl.Err(err))
		return nil
	}

	log := s.log.With(
		slog.String("event_id", event.EventID),
		slog.String("user_uid", event.UserUID))

	if event.FCMToken == "" {
		log.Info("demotion event without device token, skipping push")
		return nil
	}

	title := "Premium expired"
	text := fmt.Sprintf("Hi %s, your %s premium plan has ended. Renew to keep premium features.",
		event.Username, event.Plan)

	report, err := s.sender.Send(context.Background(), []string{event.FCMToken}, title, text)
	if err != nil {
		log.Error("failed to deliver demotion push", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("demotion push delivered",
		slog.Int("reported_success", report.Success),
		slog.Int("reported_failure", report.Failure))
	return nil
}
