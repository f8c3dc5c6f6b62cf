package ports

import (
	"context"
	"io"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

// BatchRepository persists batches and their per-file outcomes.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus) error
	FinishBatch(ctx context.Context, id string, summary string, limitHit bool) error
	GetFile(ctx context.Context, batchID, fileID string) (*domain.FileResult, error)
	MarkFileProcessing(ctx context.Context, fileID string) error
	CompleteFile(ctx context.Context, fileID string, recordCount int, results []domain.CategoryResponseItem) error
	FailFile(ctx context.Context, fileID string, message string) error
}

// ObjectStorage stores uploaded spreadsheet binaries.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes batch processing events.
type MessageQueue interface {
	PublishBatchAccepted(ctx context.Context, batchID string) error
	SubscribeBatchAccepted(ctx context.Context, handler func(context.Context, string) error) error
}

// SheetParser decodes a spreadsheet binary into generic rows keyed by column
// letter. No domain knowledge beyond the RawRow shape.
type SheetParser interface {
	Parse(data []byte) ([]domain.RawRow, error)
}

// RequestBuilder turns decoded rows into validated categorization requests.
type RequestBuilder interface {
	Build(rows []domain.RawRow, opts domain.RequestOptions) ([]domain.CategoryRequestItem, error)
}

// Categorizer submits one validated batch to the remote categorization
// service.
type Categorizer interface {
	Submit(ctx context.Context, items []domain.CategoryRequestItem) ([]domain.CategoryResponseItem, error)
}
