// Package reaper реализует периодическую чистку старых файлов,
// загруженных без премиум-статуса.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/filevault/entitlement-service/internal/lib/sl"
	"github.com/filevault/entitlement-service/internal/metrics"
	"github.com/filevault/entitlement-service/internal/models"
)

// FileRepository определяет методы хранилища для чистки записей файлов.
type FileRepository interface {
	FindExpiredFiles(ctx context.Context, cutoff time.Time, limit int) ([]*models.FileRecord, error)
	RemoveFileRecord(ctx context.Context, id int64) (int, error)
}

// BlobDeleter удаляет объект из блоб-хранилища.
type BlobDeleter interface {
	DeleteObject(ctx context.Context, storagePath string) error
}

// Service удаляет старые непремиальные файлы по расписанию.
type Service struct {
	repo          FileRepository
	blobs         BlobDeleter
	counters      *metrics.LifecycleCounters
	log           *slog.Logger
	interval      time.Duration
	retentionDays int
	batchSize     int
}

// New создает новый экземпляр Service.
func New(repo FileRepository, blobs BlobDeleter,
	counters *metrics.LifecycleCounters, log *slog.Logger,
	interval time.Duration, retentionDays, batchSize int) *Service {
	return &Service{
		repo:          repo,
		blobs:         blobs,
		counters:      counters,
		log:           log,
		interval:      interval,
		retentionDays: retentionDays,
		batchSize:     batchSize,
	}
}

// Run запускает чистку по таймеру. Первый проход выполняется сразу,
// дальше с периодом interval до отмены контекста.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("storage reaper started",
		slog.Duration("interval", s.interval),
		slog.Int("retention_days", s.retentionDays))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("storage reaper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	removed, err := s.ReapOldFiles(ctx, time.Now())
	if err != nil {
		s.log.Error("reap pass failed", sl.Err(err))
		return
	}
	s.log.Info("reap pass finished", slog.Int("removed", removed))
}

// ReapOldFiles удаляет файлы старше срока хранения, загруженные без
// премиума. Для каждой записи сначала удаляется объект в блоб-хранилище,
// затем запись в базе. Сбой на отдельной записи логируется, обход
// продолжается. Возвращает число удалённых записей.
func (s *Service) ReapOldFiles(ctx context.Context, now time.Time) (int, error) {
	const op = "reaper.ReapOldFiles"

	cutoff := now.AddDate(0, 0, -s.retentionDays)
	files, err := s.repo.FindExpiredFiles(ctx, cutoff, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	removed := 0
	for _, file := range files {
		if s.reapOne(ctx, file) {
			removed++
			s.countProcessed()
		}
	}
	return removed, nil
}

// reapOne удаляет объект в блоб-хранилище и запись в базе независимо
// друг от друга: сбой одной стороны не блокирует другую, уцелевшая
// половина будет добита следующим проходом. Отсутствующий объект
// клиент блоб-хранилища считает успехом, поэтому повтор безопасен.
func (s *Service) reapOne(ctx context.Context, file *models.FileRecord) bool {
	if err := s.blobs.DeleteObject(ctx, file.StoragePath); err != nil {
		s.log.Error("failed to delete blob",
			slog.Int64("file_id", file.ID),
			slog.String("storage_path", file.StoragePath),
			sl.Err(err))
		s.countFailure()
	}

	rowsAffected, err := s.repo.RemoveFileRecord(ctx, file.ID)
	if err != nil {
		s.log.Error("failed to remove file record, will retry next pass",
			slog.Int64("file_id", file.ID),
			sl.Err(err))
		s.countFailure()
		return false
	}
	if rowsAffected == 0 {
		s.log.Warn("file record already removed",
			slog.Int64("file_id", file.ID))
	}

	s.log.Info("expired file removed",
		slog.Int64("file_id", file.ID),
		slog.String("owner_uid", file.OwnerUID),
		slog.String("storage_path", file.StoragePath))
	return true
}

func (s *Service) countProcessed() {
	if s.counters != nil {
		s.counters.Processed.WithLabelValues("reap").Inc()
	}
}

func (s *Service) countFailure() {
	if s.counters != nil {
		s.counters.Failures.WithLabelValues("reap").Inc()
	}
}
