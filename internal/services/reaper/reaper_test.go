package reaper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/filevault/entitlement-service/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindExpiredFiles(ctx context.Context, cutoff time.Time, limit int) ([]*models.FileRecord, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FileRecord), args.Error(1)
}

func (m *RepoMock) RemoveFileRecord(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type BlobMock struct{ mock.Mock }

func (m *BlobMock) DeleteObject(ctx context.Context, storagePath string) error {
	args := m.Called(ctx, storagePath)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestReaperService_ReapOldFiles(t *testing.T) {
	const retentionDays = 60
	now := time.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)

	oldFile := &models.FileRecord{
		ID:          11,
		OwnerUID:    "user-1",
		StoragePath: "files/user-1/photo.jpg",
		CreatedAt:   now.AddDate(0, 0, -90),
		IsPremium:   false,
	}

	tests := []struct {
		name        string
		setupMocks  func(r *RepoMock, b *BlobMock)
		wantRemoved int
		wantErr     bool
	}{
		{
			name: "success - blob deleted then record removed",
			setupMocks: func(r *RepoMock, b *BlobMock) {
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return([]*models.FileRecord{oldFile}, nil).Once()
				b.On("DeleteObject", mock.Anything, "files/user-1/photo.jpg").
					Return(nil).Once()
				r.On("RemoveFileRecord", mock.Anything, int64(11)).Return(1, nil).Once()
			},
			wantRemoved: 1,
		},
		{
			name: "nothing to reap",
			setupMocks: func(r *RepoMock, _ *BlobMock) {
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return([]*models.FileRecord{}, nil).Once()
			},
			wantRemoved: 0,
		},
		{
			name: "repository error on find",
			setupMocks: func(r *RepoMock, _ *BlobMock) {
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "blob error does not block record removal",
			setupMocks: func(r *RepoMock, b *BlobMock) {
				second := &models.FileRecord{
					ID:          12,
					OwnerUID:    "user-2",
					StoragePath: "files/user-2/doc.pdf",
					CreatedAt:   now.AddDate(0, 0, -70),
				}
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return([]*models.FileRecord{oldFile, second}, nil).Once()
				b.On("DeleteObject", mock.Anything, "files/user-1/photo.jpg").
					Return(errors.New("blob store down")).Once()
				r.On("RemoveFileRecord", mock.Anything, int64(11)).Return(1, nil).Once()
				b.On("DeleteObject", mock.Anything, "files/user-2/doc.pdf").
					Return(nil).Once()
				r.On("RemoveFileRecord", mock.Anything, int64(12)).Return(1, nil).Once()
			},
			wantRemoved: 2,
		},
		{
			name: "record removal error counted as failure",
			setupMocks: func(r *RepoMock, b *BlobMock) {
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return([]*models.FileRecord{oldFile}, nil).Once()
				b.On("DeleteObject", mock.Anything, "files/user-1/photo.jpg").
					Return(nil).Once()
				r.On("RemoveFileRecord", mock.Anything, int64(11)).
					Return(0, errors.New("db error")).Once()
			},
			wantRemoved: 0,
		},
		{
			name: "already removed record still counts",
			setupMocks: func(r *RepoMock, b *BlobMock) {
				r.On("FindExpiredFiles", mock.Anything, cutoff, 500).
					Return([]*models.FileRecord{oldFile}, nil).Once()
				b.On("DeleteObject", mock.Anything, "files/user-1/photo.jpg").
					Return(nil).Once()
				r.On("RemoveFileRecord", mock.Anything, int64(11)).Return(0, nil).Once()
			},
			wantRemoved: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			blobs := new(BlobMock)
			svc := New(repo, blobs, nil, newNoopLogger(), time.Hour, retentionDays, 500)

			tt.setupMocks(repo, blobs)

			removed, err := svc.ReapOldFiles(context.Background(), now)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantRemoved, removed)
			}

			repo.AssertExpectations(t)
			blobs.AssertExpectations(t)
		})
	}
}
