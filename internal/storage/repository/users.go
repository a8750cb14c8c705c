package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/filevault/entitlement-service/internal/models"
)

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, fcm_token, role, is_premium, premium_plan
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var fcmToken sql.NullString
	if err := row.Scan(&u.UID, &u.Username, &u.Email, &fcmToken,
		&u.Role, &u.IsPremium, &u.PremiumPlan); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if fcmToken.Valid {
		u.FCMToken = fcmToken.String
	}
	return u, nil
}

// ListUsersBySegment возвращает пользователей выбранного сегмента.
// Для premium и free фильтрует по текущему значению is_premium,
// для all возвращает всех.
func (s *Storage) ListUsersBySegment(ctx context.Context, segment string) ([]*models.User, error) {
	const op = "storage.ListUsersBySegment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, fcm_token, role, is_premium, premium_plan
			  FROM users`
	switch segment {
	case models.SegmentPremium:
		query += ` WHERE is_premium = true`
	case models.SegmentFree:
		query += ` WHERE is_premium = false`
	case models.SegmentAll:
	default:
		return nil, fmt.Errorf("%s: unknown segment %q", op, segment)
	}
	query += ` ORDER BY uid`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var fcmToken sql.NullString
		if err := rows.Scan(&u.UID, &u.Username, &u.Email, &fcmToken,
			&u.Role, &u.IsPremium, &u.PremiumPlan); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if fcmToken.Valid {
			u.FCMToken = fcmToken.String
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindOrphanPremiumUsers находит пользователей с is_premium = true,
// у которых нет записи гранта. Такое состояние возможно после сбоя
// между снятием статуса и удалением гранта, ночной обход его чинит.
func (s *Storage) FindOrphanPremiumUsers(ctx context.Context) ([]*models.User, error) {
	const op = "storage.FindOrphanPremiumUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.uid, u.username, u.email, u.fcm_token, u.role, u.is_premium, u.premium_plan
			  FROM users u
			  LEFT JOIN premium_grants g ON g.user_uid = u.uid
			  WHERE u.is_premium = true
			    AND g.user_uid IS NULL`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		var fcmToken sql.NullString
		if err = rows.Scan(&u.UID, &u.Username, &u.Email, &fcmToken,
			&u.Role, &u.IsPremium, &u.PremiumPlan); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if fcmToken.Valid {
			u.FCMToken = fcmToken.String
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
