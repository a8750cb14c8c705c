package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/filevault/entitlement-service/internal/models"
)

// FindExpiredFiles возвращает записи файлов старше cutoff, загруженных
// без премиума. Фильтр идёт по снимку is_premium на момент загрузки,
// текущий статус владельца не проверяется.
func (s *Storage) FindExpiredFiles(ctx context.Context, cutoff time.Time, limit int) ([]*models.FileRecord, error) {
	const op = "storage.FindExpiredFiles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, owner_uid, storage_path, created_at, is_premium
			  FROM file_records
			  WHERE created_at < $1
			    AND is_premium = false
			  ORDER BY created_at
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.FileRecord
	for rows.Next() {
		var f models.FileRecord
		if err := rows.Scan(&f.ID, &f.OwnerUID, &f.StoragePath,
			&f.CreatedAt, &f.IsPremium); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveFileRecord удаляет запись файла и возвращает количество удалённых строк.
func (s *Storage) RemoveFileRecord(ctx context.Context, id int64) (int, error) {
	const op = "storage.RemoveFileRecord"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM file_records WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
