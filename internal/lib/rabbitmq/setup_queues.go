package rabbitmq

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RoutingKeyExpired — ключ маршрутизации событий снятия премиум-статуса.
const RoutingKeyExpired = "entitlement.expired"

// QueueDemotionNotifications — очередь воркера уведомлений о демоции.
const QueueDemotionNotifications = "demotion_notifications_queue"

// GetLifecycleQueues возвращает очереди событий жизненного цикла подписок.
func GetLifecycleQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueDemotionNotifications, RoutingKey: RoutingKeyExpired},
	}
}
