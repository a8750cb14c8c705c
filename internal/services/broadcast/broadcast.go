// Package broadcast реализует массовую рассылку push-уведомлений
// по сегментам пользователей.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/push"
)

// UserLister возвращает пользователей выбранного сегмента.
type UserLister interface {
	ListUsersBySegment(ctx context.Context, segment string) ([]*models.User, error)
}

// PushSender отправляет одно уведомление на пакет токенов.
type PushSender interface {
	Send(ctx context.Context, tokens []string, title, body string) (*push.SendResponse, error)
}

// Service рассылает уведомления по сегментам пользователей.
type Service struct {
	repo      UserLister
	sender    PushSender
	log       *slog.Logger
	chunkSize int
}

// New создает новый экземпляр Service.
func New(repo UserLister, sender PushSender, log *slog.Logger, chunkSize int) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		log:       log,
		chunkSize: chunkSize,
	}
}

// Broadcast отправляет уведомление всем пользователям сегмента.
// Доступно только администраторам. Пользователи без токена устройства
// пропускаются. Токены отправляются пачками, сбой отдельной пачки
// логируется и не прерывает рассылку; если не ушла ни одна пачка,
// возвращается ошибка недоступности провайдера. Возвращает число
// токенов, переданных провайдеру.
func (s *Service) Broadcast(ctx context.Context, callerRole string, req models.DummyBroadcastRequest) (int, error) {
	const op = "broadcast.Broadcast"

	if callerRole != models.RoleAdmin {
		return 0, fmt.Errorf("%s: %w: role %q", op, errs.ErrPermissionDenied, callerRole)
	}

	users, err := s.repo.ListUsersBySegment(ctx, req.Target)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tokens := make([]string, 0, len(users))
	for _, user := range users {
		if user.FCMToken == "" {
			continue
		}
		tokens = append(tokens, user.FCMToken)
	}
	if len(tokens) == 0 {
		s.log.Info("no deliverable devices in segment",
			slog.String("target", req.Target),
			slog.Int("users", len(users)))
		return 0, nil
	}

	submitted := 0
	failedChunks := 0
	for start := 0; start < len(tokens); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		report, err := s.sender.Send(ctx, chunk, req.Title, req.Body)
		if err != nil {
			s.log.Error("push chunk failed",
				slog.Int("chunk_size", len(chunk)), sl.Err(err))
			failedChunks++
			continue
		}
		submitted += len(chunk)
		s.log.Info("push chunk submitted",
			slog.Int("chunk_size", len(chunk)),
			slog.Int("reported_success", report.Success),
			slog.Int("reported_failure", report.Failure))
	}

	if submitted == 0 && failedChunks > 0 {
		return 0, fmt.Errorf("%s: %w: all %d chunks failed", op, errs.ErrUpstreamUnavailable, failedChunks)
	}

	s.log.Info("broadcast finished",
		slog.String("target", req.Target),
		slog.Int("submitted", submitted),
		slog.Int("failed_chunks", failedChunks))
	return submitted, nil
}
