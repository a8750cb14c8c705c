// Package expiry реализует календарную арифметику для расчёта даты
// истечения премиум-гранта.
package expiry

import (
	"fmt"
	"time"

	"github.com/filevault/entitlement-service/internal/models"
)

// AddMonths прибавляет к дате указанное число календарных месяцев.
// День месяца прижимается к последнему дню короткого месяца:
// 31 января + 1 месяц = 28/29 февраля, а не 2-3 марта, как у time.AddDate.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		hour, minute, sec, t.Nanosecond(), t.Location())
}

// ForPlan возвращает дату истечения гранта, выданного в момент grantedAt:
// один календарный месяц для monthly и двенадцать для yearly.
func ForPlan(grantedAt time.Time, plan string) (time.Time, error) {
	switch plan {
	case models.PlanMonthly:
		return AddMonths(grantedAt, 1), nil
	case models.PlanYearly:
		return AddMonths(grantedAt, 12), nil
	default:
		return time.Time{}, fmt.Errorf("unknown plan: %s", plan)
	}
}
