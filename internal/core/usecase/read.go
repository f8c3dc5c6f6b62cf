package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/core/ports"
)

// ReadBatchUseCase serves batch state to the presentation layer.
type ReadBatchUseCase struct {
	repo ports.BatchRepository
}

func NewReadBatchUseCase(repo ports.BatchRepository) *ReadBatchUseCase {
	return &ReadBatchUseCase{repo: repo}
}

func (uc *ReadBatchUseCase) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("fetch batch by id: %w", err)
	}
	return batch, nil
}

func (uc *ReadBatchUseCase) GetFileResults(ctx context.Context, batchID, fileID string) ([]domain.CategoryResponseItem, error) {
	file, err := uc.repo.GetFile(ctx, batchID, fileID)
	if err != nil {
		return nil, fmt.Errorf("fetch file by id: %w", err)
	}
	if file.Status != domain.FileCompleted {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"fetch file results",
			errors.New("file has no results: status is "+string(file.Status)),
		)
	}
	if file.Results == nil {
		return []domain.CategoryResponseItem{}, nil
	}
	return file.Results, nil
}
