package ports

import (
	"context"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

// UploadedFile is one in-memory spreadsheet accepted from the upload surface.
type UploadedFile struct {
	Filename string
	Data     []byte
}

// BatchSubmitter accepts uploaded files and registers a batch for processing.
type BatchSubmitter interface {
	Submit(ctx context.Context, files []UploadedFile, opts domain.RequestOptions) (*domain.Batch, error)
}

// BatchProcessor runs the full categorization pipeline for one batch.
type BatchProcessor interface {
	ProcessByID(ctx context.Context, batchID string) error
}

// BatchReader serves batch state to the presentation layer.
type BatchReader interface {
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)
	GetFileResults(ctx context.Context, batchID, fileID string) ([]domain.CategoryResponseItem, error)
}
