// Package entitlement содержит бизнес-логику выдачи премиум-статуса
// после подтверждения оплаты.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/lib/expiry"
	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/paymentprovider"
)

// GrantRepository определяет методы хранилища для выдачи грантов.
type GrantRepository interface {
	// PromoteUser атомарно выставляет премиум-статус и перезаписывает грант.
	PromoteUser(ctx context.Context, grant models.Grant) error
	// TryRecordPaymentKey фиксирует платёж, false - платёж уже применён.
	TryRecordPaymentKey(ctx context.Context, paymentID, userUID string) (bool, error)
	// ReleasePaymentKey снимает фиксацию платежа после неудавшейся выдачи.
	ReleasePaymentKey(ctx context.Context, paymentID string) error
}

// PaymentProvider описывает запрос платежа у внешнего провайдера.
type PaymentProvider interface {
	RetrievePayment(ctx context.Context, paymentID string) (*paymentprovider.Payment, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Set(key string, value any, expiration time.Duration) error
}

// Service реализует выдачу премиум-статуса.
type Service struct {
	repo     GrantRepository
	provider PaymentProvider
	cache    Cache
	log      *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo GrantRepository, provider PaymentProvider, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		cache:    cache,
		log:      log,
	}
}

// CachedStatus — премиум-статус пользователя в кеше.
type CachedStatus struct {
	IsPremium  bool      `json:"is_premium"`
	Plan       string    `json:"plan"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// StatusCacheKey возвращает ключ кеша премиум-статуса пользователя.
func StatusCacheKey(userUID string) string {
	return fmt.Sprintf("premium:%s", userUID)
}

// Grant проверяет платёж у провайдера и при успехе выдает пользователю
// премиум-статус до расчётной даты истечения. Возвращает false без ошибки,
// если провайдер сообщил, что платёж не прошёл. Повторный вызов с тем же
// paymentID не продлевает подписку второй раз.
func (s *Service) Grant(ctx context.Context, userUID string, req models.DummyGrantRequest) (bool, error) {
	const op = "entitlement.Grant"

	if req.Plan != models.PlanMonthly && req.Plan != models.PlanYearly {
		return false, fmt.Errorf("%s: %w: plan %q", op, errs.ErrInvalidArgument, req.Plan)
	}
	if req.PaymentID == "" {
		return false, fmt.Errorf("%s: %w: empty payment id", op, errs.ErrInvalidArgument)
	}

	payment, err := s.provider.RetrievePayment(ctx, req.PaymentID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !payment.Succeeded() {
		s.log.Info("payment not confirmed, no grant issued",
			slog.String("payment_id", req.PaymentID),
			slog.String("status", payment.Status))
		return false, nil
	}

	fresh, err := s.repo.TryRecordPaymentKey(ctx, req.PaymentID, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		s.log.Info("payment already applied, skipping duplicate grant",
			slog.String("payment_id", req.PaymentID))
		return true, nil
	}

	now := time.Now()
	expiryDate, err := expiry.ForPlan(now, req.Plan)
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, errs.ErrInvalidArgument, err)
	}

	grant := models.Grant{
		UserUID:    userUID,
		Plan:       req.Plan,
		Amount:     payment.Amount.Value,
		PaymentID:  req.PaymentID,
		GrantedAt:  now,
		ExpiryDate: expiryDate,
	}
	if err := s.repo.PromoteUser(ctx, grant); err != nil {
		if releaseErr := s.repo.ReleasePaymentKey(ctx, req.PaymentID); releaseErr != nil {
			s.log.Error("failed to release payment key after failed promote", sl.Err(releaseErr))
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("premium granted",
		slog.String("user_uid", userUID),
		slog.String("plan", req.Plan),
		slog.Time("expiry_date", expiryDate))

	cacheKey := StatusCacheKey(userUID)
	status := CachedStatus{IsPremium: true, Plan: req.Plan, ExpiryDate: expiryDate}
	if err := s.cache.Set(cacheKey, status, time.Hour); err != nil {
		s.log.Warn("failed to cache premium status", slog.String("key", cacheKey), sl.Err(err))
	}

	return true, nil
}
