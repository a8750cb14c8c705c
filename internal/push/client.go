// Package push реализует клиент FCM для доставки push-уведомлений
// на устройства пользователей файлового хранилища.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/filevault/entitlement-service/internal/errs"
)

type Client struct {
	serverKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт новый FCM-клиент.
func NewClient(apiURL, serverKey string, timeout time.Duration) *Client {
	return &Client{
		serverKey:  serverKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendRequest struct {
	RegistrationIDs []string     `json:"registration_ids,omitempty"`
	To              string       `json:"to,omitempty"`
	Notification    notification `json:"notification"`
}

// SendResponse — отчёт FCM о доставке. Сервис логирует его,
// контракт операций от подтверждения доставки не зависит.
type SendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send отправляет одно уведомление на пакет токенов.
// Сетевые сбои и 5xx оборачиваются в errs.ErrUpstreamUnavailable.
func (c *Client) Send(ctx context.Context, tokens []string, title, body string) (*SendResponse, error) {
	const op = "push.Send"

	payload := sendRequest{
		Notification: notification{Title: title, Body: body},
	}
	if len(tokens) == 1 {
		payload.To = tokens[0]
	} else {
		payload.RegistrationIDs = tokens
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s: %w: status %s", op, errs.ErrUpstreamUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var report SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &report, nil
}
