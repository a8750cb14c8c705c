package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/models"
	"github.com/filevault/entitlement-service/internal/push"
)

type SenderMock struct{ mock.Mock }

func (m *SenderMock) Send(ctx context.Context, tokens []string, title, body string) (*push.SendResponse, error) {
	args := m.Called(ctx, tokens, title, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*push.SendResponse), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func eventBody(t *testing.T, event models.DemotionEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return body
}

func TestNotifierService_HandleDemotionEvent(t *testing.T) {
	event := models.DemotionEvent{
		EventID:  "evt-1",
		UserUID:  "user-1",
		Username: "alice",
		FCMToken: "token-1",
		Plan:     models.PlanMonthly,
		Expired:  time.Now(),
	}

	tests := []struct {
		name       string
		body       func(t *testing.T) []byte
		setupMocks func(s *SenderMock)
		wantErr    bool
	}{
		{
			name: "success - push delivered to single token",
			body: func(t *testing.T) []byte { return eventBody(t, event) },
			setupMocks: func(s *SenderMock) {
				s.On("Send", mock.Anything, []string{"token-1"}, "Premium expired",
					mock.MatchedBy(func(text string) bool {
						return len(text) > 0
					})).Return(&push.SendResponse{Success: 1}, nil).Once()
			},
		},
		{
			name: "malformed event acked without retry",
			body: func(_ *testing.T) []byte { return []byte("{not json") },
			setupMocks: func(_ *SenderMock) {
			},
		},
		{
			name: "event without token acked without push",
			body: func(t *testing.T) []byte {
				noToken := event
				noToken.FCMToken = ""
				return eventBody(t, noToken)
			},
			setupMocks: func(_ *SenderMock) {
			},
		},
		{
			name: "provider failure requeues message",
			body: func(t *testing.T) []byte { return eventBody(t, event) },
			setupMocks: func(s *SenderMock) {
				s.On("Send", mock.Anything, []string{"token-1"}, "Premium expired", mock.Anything).
					Return(nil, errs.ErrUpstreamUnavailable).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(SenderMock)
			svc := New(sender, newNoopLogger())

			tt.setupMocks(sender)

			err := svc.HandleDemotionEvent(tt.body(t))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			sender.AssertExpectations(t)
		})
	}
}
