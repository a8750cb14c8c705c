package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/paymentprovider"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) PromoteUser(ctx context.Context, grant models.Grant) error {
	args := m.Called(ctx, grant)
	return args.Error(0)
}

func (m *RepoMock) TryRecordPaymentKey(ctx context.Context, paymentID, userUID string) (bool, error) {
	args := m.Called(ctx, paymentID, userUID)
	return args.Bool(0), args.Error(1)
}

func (m *RepoMock) ReleasePaymentKey(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) RetrievePayment(ctx context.Context, paymentID string) (*paymentprovider.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Payment), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func succeededPayment(id string) *paymentprovider.Payment {
	return &paymentprovider.Payment{
		ID:     id,
		Status: paymentprovider.StatusSucceeded,
		Amount: paymentprovider.Amount{Value: 29900, Currency: "RUB"},
	}
}

func TestEntitlementService_Grant(t *testing.T) {
	const userUID = "user-123"
	req := models.DummyGrantRequest{PaymentID: "pay-1", Plan: models.PlanMonthly}

	tests := []struct {
		name        string
		req         models.DummyGrantRequest
		setupMocks  func(r *RepoMock, p *ProviderMock, c *CacheMock)
		wantGranted bool
		wantErr     bool
		wantErrIs   error
	}{
		{
			name: "success grant",
			req:  req,
			setupMocks: func(r *RepoMock, p *ProviderMock, c *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(succeededPayment("pay-1"), nil).Once()
				r.On("TryRecordPaymentKey", mock.Anything, "pay-1", userUID).
					Return(true, nil).Once()
				r.On("PromoteUser", mock.Anything, mock.MatchedBy(func(g models.Grant) bool {
					return g.UserUID == userUID &&
						g.Plan == models.PlanMonthly &&
						g.Amount == 29900 &&
						g.PaymentID == "pay-1" &&
						g.ExpiryDate.After(g.GrantedAt)
				})).Return(nil).Once()
				c.On("Set", "premium:user-123", mock.Anything, time.Hour).Return(nil).Once()
			},
			wantGranted: true,
		},
		{
			name: "unknown plan",
			req:  models.DummyGrantRequest{PaymentID: "pay-1", Plan: "weekly"},
			setupMocks: func(_ *RepoMock, _ *ProviderMock, _ *CacheMock) {
			},
			wantErr:   true,
			wantErrIs: errs.ErrInvalidArgument,
		},
		{
			name: "empty payment id",
			req:  models.DummyGrantRequest{Plan: models.PlanYearly},
			setupMocks: func(_ *RepoMock, _ *ProviderMock, _ *CacheMock) {
			},
			wantErr:   true,
			wantErrIs: errs.ErrInvalidArgument,
		},
		{
			name: "payment declined, no mutation",
			req:  req,
			setupMocks: func(_ *RepoMock, p *ProviderMock, _ *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(&paymentprovider.Payment{
						ID:     "pay-1",
						Status: paymentprovider.StatusCanceled,
					}, nil).Once()
			},
			wantGranted: false,
		},
		{
			name: "provider unavailable",
			req:  req,
			setupMocks: func(_ *RepoMock, p *ProviderMock, _ *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(nil, errs.ErrUpstreamUnavailable).Once()
			},
			wantErr:   true,
			wantErrIs: errs.ErrUpstreamUnavailable,
		},
		{
			name: "duplicate payment is acknowledged without second grant",
			req:  req,
			setupMocks: func(r *RepoMock, p *ProviderMock, _ *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(succeededPayment("pay-1"), nil).Once()
				r.On("TryRecordPaymentKey", mock.Anything, "pay-1", userUID).
					Return(false, nil).Once()
			},
			wantGranted: true,
		},
		{
			name: "promote failure releases payment key",
			req:  req,
			setupMocks: func(r *RepoMock, p *ProviderMock, _ *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(succeededPayment("pay-1"), nil).Once()
				r.On("TryRecordPaymentKey", mock.Anything, "pay-1", userUID).
					Return(true, nil).Once()
				r.On("PromoteUser", mock.Anything, mock.Anything).
					Return(errors.New("db error")).Once()
				r.On("ReleasePaymentKey", mock.Anything, "pay-1").Return(nil).Once()
			},
			wantErr: true,
		},
		{
			name: "cache set error does not fail grant",
			req:  req,
			setupMocks: func(r *RepoMock, p *ProviderMock, c *CacheMock) {
				p.On("RetrievePayment", mock.Anything, "pay-1").
					Return(succeededPayment("pay-1"), nil).Once()
				r.On("TryRecordPaymentKey", mock.Anything, "pay-1", userUID).
					Return(true, nil).Once()
				r.On("PromoteUser", mock.Anything, mock.Anything).Return(nil).Once()
				c.On("Set", "premium:user-123", mock.Anything, time.Hour).
					Return(errors.New("redis down")).Once()
			},
			wantGranted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			provider := new(ProviderMock)
			cache := new(CacheMock)
			svc := New(repo, provider, cache, newNoopLogger())

			tt.setupMocks(repo, provider, cache)

			granted, err := svc.Grant(context.Background(), userUID, tt.req)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantGranted, granted)
			}

			repo.AssertExpectations(t)
			provider.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestEntitlementService_GrantYearlyExpiry(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	cache := new(CacheMock)
	svc := New(repo, provider, cache, newNoopLogger())

	provider.On("RetrievePayment", mock.Anything, "pay-y").
		Return(succeededPayment("pay-y"), nil).Once()
	repo.On("TryRecordPaymentKey", mock.Anything, "pay-y", "user-9").
		Return(true, nil).Once()
	repo.On("PromoteUser", mock.Anything, mock.MatchedBy(func(g models.Grant) bool {
		months := g.ExpiryDate.Sub(g.GrantedAt)
		return months > 360*24*time.Hour && months < 370*24*time.Hour
	})).Return(nil).Once()
	cache.On("Set", "premium:user-9", mock.Anything, time.Hour).Return(nil).Once()

	granted, err := svc.Grant(context.Background(), "user-9",
		models.DummyGrantRequest{PaymentID: "pay-y", Plan: models.PlanYearly})

	assert.NoError(t, err)
	assert.True(t, granted)
	repo.AssertExpectations(t)
}
