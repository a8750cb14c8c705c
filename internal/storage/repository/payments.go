package repository

import (
	"context"
	"fmt"
)

// TryRecordPaymentKey фиксирует идентификатор платежа как использованный.
// Возвращает false, если платёж уже был применён раньше: повторный вызов
// Grant с тем же payment_id не должен продлевать подписку второй раз.
func (s *Storage) TryRecordPaymentKey(ctx context.Context, paymentID, userUID string) (bool, error) {
	const op = "storage.TryRecordPaymentKey"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_keys (payment_id, user_uid, created_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (payment_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, paymentID, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// ReleasePaymentKey убирает идентификатор платежа из использованных.
// Вызывается, если выдача гранта после фиксации ключа не удалась,
// чтобы клиент мог повторить запрос с тем же платежом.
func (s *Storage) ReleasePaymentKey(ctx context.Context, paymentID string) error {
	const op = "storage.ReleasePaymentKey"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM payment_keys WHERE payment_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, paymentID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
