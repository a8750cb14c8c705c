// Package models содержит доменные структуры сервиса премиум-подписок:
// пользователей файлового хранилища, записи премиум-грантов и метаданные файлов.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

// User представляет пользователя файлового хранилища.
type User struct {
	UID         string // Уникальный идентификатор пользователя
	Username    string // Имя пользователя (уникальное)
	Email       string // Электронная почта
	FCMToken    string // Токен устройства для push-уведомлений, может быть пустым
	Role        string // Роль пользователя, admin или user
	IsPremium   bool   // Текущий премиум-статус
	PremiumPlan string // Тарифный план: monthly, yearly или none
}

// Роли пользователей.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Тарифные планы.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
	PlanNone    = "none"
)

// Сегменты пользователей для рассылки уведомлений.
const (
	SegmentAll     = "all"
	SegmentPremium = "premium"
	SegmentFree    = "free"
)
