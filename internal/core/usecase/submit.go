package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/core/ports"
)

// SubmitBatchUseCase accepts uploaded spreadsheets, persists them, and hands
// the batch off to the worker via the queue.
type SubmitBatchUseCase struct {
	repo       ports.BatchRepository
	storage    ports.ObjectStorage
	queue      ports.MessageQueue
	maxRecords int
}

func NewSubmitBatchUseCase(
	repo ports.BatchRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	maxRecords int,
) *SubmitBatchUseCase {
	if maxRecords <= 0 {
		maxRecords = domain.MaxSubmissionItems
	}
	return &SubmitBatchUseCase{
		repo:       repo,
		storage:    storage,
		queue:      queue,
		maxRecords: maxRecords,
	}
}

func (uc *SubmitBatchUseCase) Submit(
	ctx context.Context,
	files []ports.UploadedFile,
	opts domain.RequestOptions,
) (*domain.Batch, error) {
	if len(files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("at least one file is required"))
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:         uuid.NewString(),
		Status:     domain.BatchPending,
		Options:    opts,
		MaxRecords: uc.maxRecords,
		Files:      make([]domain.FileResult, 0, len(files)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, file := range files {
		fileID := uuid.NewString()
		storageKey := fmt.Sprintf("%s_%s", fileID, sanitizeFilename(file.Filename))
		if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(file.Data)); err != nil {
			return nil, fmt.Errorf("save %s to object storage: %w", file.Filename, err)
		}

		batch.Files = append(batch.Files, domain.FileResult{
			ID:          fileID,
			BatchID:     batch.ID,
			Filename:    file.Filename,
			StoragePath: storageKey,
			Position:    i,
			Status:      domain.FilePending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := uc.repo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch record: %w", err)
	}

	if err := uc.queue.PublishBatchAccepted(ctx, batch.ID); err != nil {
		return nil, fmt.Errorf("publish batch event: %w", err)
	}
	return batch, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "upload.xlsx"
	}
	return base
}
