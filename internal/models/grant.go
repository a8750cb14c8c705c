package models

import "time"

// Grant представляет запись активного премиум-гранта.
// На одного пользователя существует не более одной записи:
// повторная оплата перезаписывает грант вместе с датой истечения.
type Grant struct {
	UserUID    string    // Владелец гранта
	Plan       string    // Тарифный план: monthly или yearly
	Amount     int64     // Оплаченная сумма в минорных единицах
	PaymentID  string    // Идентификатор платежа у провайдера
	GrantedAt  time.Time // Момент выдачи гранта
	ExpiryDate time.Time // Момент истечения
}

// DummyGrantRequest используется для приёма данных из JSON-запроса на выдачу премиума.
type DummyGrantRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`                // Идентификатор платежа
	Plan      string `json:"plan" validate:"required,oneof=monthly yearly"` // Тарифный план
}

// DemotionEvent публикуется в очередь при снятии премиум-статуса,
// воркер уведомлений доставляет по нему push о завершении подписки.
type DemotionEvent struct {
	EventID  string    `json:"event_id"`
	UserUID  string    `json:"user_uid"`
	Username string    `json:"username"`
	FCMToken string    `json:"fcm_token,omitempty"`
	Plan     string    `json:"plan"`
	Expired  time.Time `json:"expired"`
}
