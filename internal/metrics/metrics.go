// Package metrics содержит prometheus-счётчики периодических задач обслуживания.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LifecycleCounters — счётчики обработанных и упавших записей
// для ночных обходов (снятие премиума, чистка файлов).
type LifecycleCounters struct {
	Processed *prometheus.CounterVec
	Failures  *prometheus.CounterVec
}

// NewLifecycleCounters регистрирует счётчики в реестре по умолчанию.
func NewLifecycleCounters() *LifecycleCounters {
	return &LifecycleCounters{
		Processed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Name:      "lifecycle_processed_total",
				Help:      "Records processed by scheduled lifecycle jobs.",
			},
			[]string{"job"}),
		Failures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "entitlements",
				Name:      "lifecycle_failures_total",
				Help:      "Per-record failures in scheduled lifecycle jobs.",
			},
			[]string{"job"}),
	}
}
