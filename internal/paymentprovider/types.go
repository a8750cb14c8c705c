package paymentprovider

// Статусы платежа у провайдера.
const (
	StatusSucceeded = "succeeded"
	StatusPending   = "pending"
	StatusCanceled  = "canceled"
)

// Amount — сумма платежа в минорных единицах валюты.
type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// Payment — ответ провайдера на запрос платежа по его идентификатору.
type Payment struct {
	ID     string `json:"id"`
	Status string `json:"status"` // succeeded, pending или canceled
	Amount Amount `json:"amount"`
}

// Succeeded сообщает, подтверждён ли платёж.
func (p *Payment) Succeeded() bool {
	return p.Status == StatusSucceeded
}
