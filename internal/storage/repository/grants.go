package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/filevault/entitlement-service/internal/models"
)

// PromoteUser в одной транзакции выставляет пользователю премиум-статус
// и перезаписывает его грант. Повторная оплата заменяет существующий
// грант вместе с датой истечения, дубликат записи невозможен:
// premium_grants держит первичный ключ по user_uid.
func (s *Storage) PromoteUser(ctx context.Context, grant models.Grant) error {
	const op = "storage.PromoteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	userQuery := `UPDATE users
				  SET is_premium = true, premium_plan = $1
				  WHERE uid = $2`
	res, err := tx.ExecContext(ctx, userQuery, grant.Plan, grant.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: user %s not found", op, grant.UserUID)
	}

	grantQuery := `INSERT INTO premium_grants (user_uid, plan, amount, payment_id, granted_at, expiry_date)
				   VALUES ($1, $2, $3, $4, $5, $6)
				   ON CONFLICT (user_uid) DO UPDATE
				   SET plan = EXCLUDED.plan,
				       amount = EXCLUDED.amount,
				       payment_id = EXCLUDED.payment_id,
				       granted_at = EXCLUDED.granted_at,
				       expiry_date = EXCLUDED.expiry_date`
	if _, err = tx.ExecContext(ctx, grantQuery,
		grant.UserUID, grant.Plan, grant.Amount, grant.PaymentID,
		grant.GrantedAt, grant.ExpiryDate); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DemoteUser в одной транзакции снимает премиум-статус
// и удаляет грант пользователя, если он есть.
func (s *Storage) DemoteUser(ctx context.Context, userUID string) error {
	const op = "storage.DemoteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	userQuery := `UPDATE users
				  SET is_premium = false, premium_plan = 'none'
				  WHERE uid = $1`
	if _, err = tx.ExecContext(ctx, userQuery, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	grantQuery := `DELETE FROM premium_grants WHERE user_uid = $1`
	if _, err = tx.ExecContext(ctx, grantQuery, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindExpiredGrants возвращает гранты с истёкшей датой действия.
func (s *Storage) FindExpiredGrants(ctx context.Context, now time.Time, limit int) ([]*models.Grant, error) {
	const op = "storage.FindExpiredGrants"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan, amount, payment_id, granted_at, expiry_date
			  FROM premium_grants
			  WHERE expiry_date < $1
			  ORDER BY expiry_date
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Grant
	for rows.Next() {
		var g models.Grant
		if err := rows.Scan(&g.UserUID, &g.Plan, &g.Amount, &g.PaymentID,
			&g.GrantedAt, &g.ExpiryDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &g)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadGrant возвращает грант пользователя.
func (s *Storage) ReadGrant(ctx context.Context, userUID string) (*models.Grant, error) {
	const op = "storage.ReadGrant"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan, amount, payment_id, granted_at, expiry_date
			  FROM premium_grants
			  WHERE user_uid = $1`
	var g models.Grant
	row := s.DB.QueryRowContext(ctx, query, userUID)
	if err := row.Scan(&g.UserUID, &g.Plan, &g.Amount, &g.PaymentID,
		&g.GrantedAt, &g.ExpiryDate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &g, nil
}
