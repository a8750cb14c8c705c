package models

// DummyBroadcastRequest используется для приёма данных из JSON-запроса на рассылку.
type DummyBroadcastRequest struct {
	Target string `json:"target" validate:"required,oneof=all premium free"` // Сегмент получателей
	Title  string `json:"title" validate:"required"`                         // Заголовок уведомления
	Body   string `json:"body" validate:"required"`                          // Текст уведомления
}
