// Package blob реализует клиент blob-хранилища файлов.
// Сервису подписок нужен только путь удаления: чистка просроченных
// файлов убирает объект по его storage_path.
package blob

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	apiURL     string
	accessKey  string
	httpClient *http.Client
}

// NewClient создаёт новый клиент blob-хранилища.
func NewClient(apiURL, accessKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		accessKey:  accessKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// DeleteObject удаляет объект по его пути в хранилище.
// Отсутствующий объект не считается ошибкой: повторный запуск чистки
// после сбоя должен проходить по тем же записям без шума.
func (c *Client) DeleteObject(ctx context.Context, storagePath string) error {
	endpoint := c.apiURL + "/" + url.PathEscape(strings.TrimPrefix(storagePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK,
		resp.StatusCode == http.StatusNoContent,
		resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return errors.New("unexpected status: " + resp.Status)
	}
}
