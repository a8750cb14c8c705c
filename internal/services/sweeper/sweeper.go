// Package sweeper реализует периодическое снятие премиум-статуса
// с пользователей, у которых истёк срок действия гранта.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/filevault/entitlement-service/internal/lib/rabbitmq"
	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/metrics"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/services/entitlement"
)

// SweepRepository определяет методы хранилища для снятия премиума.
type SweepRepository interface {
	FindExpiredGrants(ctx context.Context, now time.Time, limit int) ([]*models.Grant, error)
	// DemoteUser атомарно снимает премиум-статус и удаляет грант.
	DemoteUser(ctx context.Context, userUID string) error
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	FindOrphanPremiumUsers(ctx context.Context) ([]*models.User, error)
}

// EventPublisher публикует события жизненного цикла в очередь уведомлений.
type EventPublisher interface {
	Publish(routingKey string, message any) error
}

// Cache описывает методы для сброса кеша премиум-статуса.
type Cache interface {
	Invalidate(key string) error
}

// Service снимает премиум-статус по расписанию.
type Service struct {
	repo      SweepRepository
	publisher EventPublisher
	cache     Cache
	counters  *metrics.LifecycleCounters
	log       *slog.Logger
	interval  time.Duration
	batchSize int
}

// New создает новый экземпляр Service.
func New(repo SweepRepository, publisher EventPublisher, cache Cache,
	counters *metrics.LifecycleCounters, log *slog.Logger,
	interval time.Duration, batchSize int) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		counters:  counters,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run запускает обход по таймеру. Первый проход выполняется сразу,
// дальше с периодом interval до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("expiry sweeper started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	demoted, err := s.SweepExpired(ctx, time.Now())
	if err != nil {
		s.log.Error("sweep pass failed", sl.Err(err))
	} else {
		s.log.Info("sweep pass finished", slog.Int("demoted", demoted))
	}

	fixed, err := s.ReconcileOrphans(ctx)
	if err != nil {
		s.log.Error("orphan reconciliation failed", sl.Err(err))
	} else if fixed > 0 {
		s.log.Warn("orphan premium users corrected", slog.Int("count", fixed))
	}
}

// SweepExpired находит гранты, истёкшие к моменту now, и снимает премиум
// с их владельцев. Сбой на отдельной записи логируется, обход продолжается:
// такая запись будет подхвачена следующим проходом. Возвращает число
// успешно обработанных пользователей.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	const op = "sweeper.SweepExpired"

	grants, err := s.repo.FindExpiredGrants(ctx, now, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	demoted := 0
	for _, grant := range grants {
		if err := s.demoteOne(ctx, grant); err != nil {
			s.log.Error("failed to demote user, will retry next pass",
				slog.String("user_uid", grant.UserUID), sl.Err(err))
			s.countFailure("sweep")
			continue
		}
		demoted++
		s.countProcessed("sweep")
	}
	return demoted, nil
}

func (s *Service) demoteOne(ctx context.Context, grant *models.Grant) error {
	const op = "sweeper.demoteOne"

	// Пользователь читается до демоции: после неё fcm_token нужен для
	// уведомления, а грант уже удалён.
	user, err := s.repo.GetUser(ctx, grant.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.DemoteUser(ctx, grant.UserUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.cache.Invalidate(entitlement.StatusCacheKey(grant.UserUID)); err != nil {
		s.log.Warn("failed to invalidate premium status cache",
			slog.String("user_uid", grant.UserUID), sl.Err(err))
	}

	event := models.DemotionEvent{
		EventID:  uuid.NewString(),
		UserUID:  user.UID,
		Username: user.Username,
		FCMToken: user.FCMToken,
		Plan:     grant.Plan,
		Expired:  grant.ExpiryDate,
	}
	if err := s.publisher.Publish(rabbitmq.RoutingKeyExpired, event); err != nil {
		// Демоция уже применена, уведомление теряем осознанно:
		// статус пользователя важнее письма о нём.
		s.log.Error("failed to publish demotion event",
			slog.String("user_uid", grant.UserUID), sl.Err(err))
	}

	s.log.Info("premium expired, user demoted",
		slog.String("user_uid", grant.UserUID),
		slog.String("plan", grant.Plan),
		slog.Time("expired", grant.ExpiryDate))
	return nil
}

// ReconcileOrphans находит пользователей с премиум-флагом без записи гранта
// и снимает с них статус. Уведомления по таким пользователям не шлются:
// их грант уже удалён, а значит демоция ранее началась и была прервана.
func (s *Service) ReconcileOrphans(ctx context.Context) (int, error) {
	const op = "sweeper.ReconcileOrphans"

	orphans, err := s.repo.FindOrphanPremiumUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	fixed := 0
	for _, user := range orphans {
		if err := s.repo.DemoteUser(ctx, user.UID); err != nil {
			s.log.Error("failed to demote orphan premium user",
				slog.String("user_uid", user.UID), sl.Err(err))
			s.countFailure("reconcile")
			continue
		}
		if err := s.cache.Invalidate(entitlement.StatusCacheKey(user.UID)); err != nil {
			s.log.Warn("failed to invalidate premium status cache",
				slog.String("user_uid", user.UID), sl.Err(err))
		}
		fixed++
		s.countProcessed("reconcile")
	}
	return fixed, nil
}

func (s *Service) countProcessed(job string) {
	if s.counters != nil {
		s.counters.Processed.WithLabelValues(job).Inc()
	}
}

func (s *Service) countFailure(job string) {
	if s.counters != nil {
		s.counters.Failures.WithLabelValues(job).Inc()
	}
}
