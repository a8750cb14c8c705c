package broadcastsend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/filevault/entitlement-service/internal/errs"
	"github.com/filevault/entitlement-service/internal/http/middlewarectx"
	"github.com/filevault/entitlement-service/internal/models"
)

// MockService реализует интерфейс broadcastsend.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Broadcast(ctx context.Context, callerRole string, req models.DummyBroadcastRequest) (int, error) {
	args := m.Called(ctx, callerRole, req)
	return args.Int(0), args.Error(1)
}

func TestBroadcastSendHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	validBody := models.DummyBroadcastRequest{
		Target: "premium",
		Title:  "Maintenance",
		Body:   "Service will be down tonight",
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		role           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная рассылка",
			requestBody: validBody,
			role:        models.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Broadcast", mock.Anything, models.RoleAdmin, validBody).
					Return(42, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"sent_to":42`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			role:           models.RoleAdmin,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка валидации",
			requestBody: models.DummyBroadcastRequest{
				Target: "admins",
				Title:  "Maintenance",
				Body:   "text",
			},
			role:           models.RoleAdmin,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Target must be one of: all premium free`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    validBody,
			role:           "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "недостаточно прав",
			requestBody: validBody,
			role:        models.RoleUser,
			setupMock: func(m *MockService) {
				m.On("Broadcast", mock.Anything, models.RoleUser, validBody).
					Return(0, errs.ErrPermissionDenied)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"admin role required"}`,
		},
		{
			name:        "провайдер недоступен",
			requestBody: validBody,
			role:        models.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Broadcast", mock.Anything, models.RoleAdmin, validBody).
					Return(0, errs.ErrUpstreamUnavailable)
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"status":"Error","error":"push provider unavailable"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: validBody,
			role:        models.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Broadcast", mock.Anything, models.RoleAdmin, validBody).
					Return(0, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not broadcast notification"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/notifications/broadcast", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.Role, tt.role)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)

			mockService.AssertExpectations(t)
		})
	}
}
