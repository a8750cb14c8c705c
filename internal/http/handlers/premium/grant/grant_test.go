package grant

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

// MockService реализует интерфейс grant.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Grant(ctx context.Context, userUID string, req models.DummyGrantRequest) (bool, error) {
	args := m.Called(ctx, userUID, req)
	return args.Bool(0), args.Error(1)
}

func TestGrantHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	validBody := models.DummyGrantRequest{
		PaymentID: "pay-1",
		Plan:      "monthly",
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная выдача премиума",
			requestBody: validBody,
			userUID:     "user-1",
			setupMock: func(m *MockService) {
				m.On("Grant", mock.Anything, "user-1", validBody).
					Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"granted":true`,
		},
		{
			name:        "платёж отклонён провайдером",
			requestBody: validBody,
			userUID:     "user-1",
			setupMock: func(m *MockService) {
				m.On("Grant", mock.Anything, "user-1", validBody).
					Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"granted":false`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "user-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "ошибка валидации",
			requestBody: models.DummyGrantRequest{
				PaymentID: "pay-1",
				Plan:      "weekly",
			},
			userUID:        "user-1",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Plan must be one of: monthly yearly`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    validBody,
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "провайдер недоступен",
			requestBody: validBody,
			userUID:     "user-1",
			setupMock: func(m *MockService) {
				m.On("Grant", mock.Anything, "user-1", validBody).
					Return(false, errs.ErrUpstreamUnavailable)
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"status":"Error","error":"payment provider unavailable"}`,
		},
		{
			name:        "некорректные аргументы",
			requestBody: validBody,
			userUID:     "user-1",
			setupMock: func(m *MockService) {
				m.On("Grant", mock.Anything, "user-1", validBody).
					Return(false, errs.ErrInvalidArgument)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"invalid plan or payment id"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: validBody,
			userUID:     "user-1",
			setupMock: func(m *MockService) {
				m.On("Grant", mock.Anything, "user-1", validBody).
					Return(false, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not grant premium"}`,
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

			req := httptest.NewRequest(http.MethodPost, "/premium/grant", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
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
