package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/core/ports"
)

// ProcessBatchUseCase drives the categorization pipeline for one batch:
// parse each file, build request items, enforce the shared record budget,
// submit per file, and record per-file outcomes.
//
// Files are handled one at a time in upload order. The record budget and the
// inter-file pacing both depend on the running total, so there is no
// concurrent fan-out and no locking.
type ProcessBatchUseCase struct {
	repo        ports.BatchRepository
	storage     ports.ObjectStorage
	parser      ports.SheetParser
	builder     ports.RequestBuilder
	categorizer ports.Categorizer

	submitInterval time.Duration
	observer       func(domain.FileResult)
}

func NewProcessBatchUseCase(
	repo ports.BatchRepository,
	storage ports.ObjectStorage,
	parser ports.SheetParser,
	builder ports.RequestBuilder,
	categorizer ports.Categorizer,
	submitInterval time.Duration,
) *ProcessBatchUseCase {
	return &ProcessBatchUseCase{
		repo:           repo,
		storage:        storage,
		parser:         parser,
		builder:        builder,
		categorizer:    categorizer,
		submitInterval: submitInterval,
	}
}

// SetObserver registers a callback receiving an immutable snapshot of each
// per-file outcome as it becomes terminal. Used by presentation layers that
// want progress without polling.
func (uc *ProcessBatchUseCase) SetObserver(fn func(domain.FileResult)) {
	uc.observer = fn
}

func (uc *ProcessBatchUseCase) ProcessByID(ctx context.Context, batchID string) error {
	batch, err := uc.repo.GetBatch(ctx, batchID)
	if err != nil {
		return fmt.Errorf("fetch batch by id: %w", err)
	}
	if err := uc.repo.UpdateBatchStatus(ctx, batch.ID, domain.BatchProcessing); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	// Burst 1 and a full bucket at start: the first submission goes out
	// immediately, each later one waits out the interval.
	var limiter *rate.Limiter
	if uc.submitInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(uc.submitInterval), 1)
	}

	accepted := 0
	limitHit := false
	outcomes := make([]domain.FileResult, len(batch.Files))
	copy(outcomes, batch.Files)

	for i := range outcomes {
		file := &outcomes[i]

		if accepted >= batch.MaxRecords {
			limitHit = true
			msg := fmt.Sprintf("record limit of %d reached before this file was processed; file skipped", batch.MaxRecords)
			if err := uc.failFile(ctx, file, msg); err != nil {
				return err
			}
			continue
		}

		if err := uc.repo.MarkFileProcessing(ctx, file.ID); err != nil {
			return fmt.Errorf("mark file %s processing: %w", file.ID, err)
		}
		file.Status = domain.FileProcessing

		items, truncated, err := uc.loadItems(ctx, batch, *file, batch.MaxRecords-accepted)
		if err != nil {
			if failErr := uc.failFile(ctx, file, err.Error()); failErr != nil {
				return failErr
			}
			continue
		}
		if truncated {
			limitHit = true
		}

		if len(items) == 0 {
			// Header-only or empty sheet: recorded, batch continues.
			if err := uc.completeFile(ctx, file, 0, []domain.CategoryResponseItem{}); err != nil {
				return err
			}
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("wait for submission slot: %w", err)
			}
		}

		results, err := uc.categorizer.Submit(ctx, items)
		if err != nil {
			if failErr := uc.failFile(ctx, file, err.Error()); failErr != nil {
				return failErr
			}
			continue
		}

		accepted += len(items)
		if err := uc.completeFile(ctx, file, len(items), results); err != nil {
			return err
		}
	}

	summary := domain.Summarize(outcomes, batch.MaxRecords, limitHit)
	if err := uc.repo.FinishBatch(ctx, batch.ID, summary.Message(), limitHit); err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// loadItems reads one stored file and turns it into request items, keeping
// only as many leading rows as fit in the remaining budget.
func (uc *ProcessBatchUseCase) loadItems(
	ctx context.Context,
	batch *domain.Batch,
	file domain.FileResult,
	remaining int,
) ([]domain.CategoryRequestItem, bool, error) {
	reader, err := uc.storage.Open(ctx, file.StoragePath)
	if err != nil {
		return nil, false, fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("read stored file: %w", err)
	}

	rows, err := uc.parser.Parse(data)
	if err != nil {
		return nil, false, err
	}

	items, err := uc.builder.Build(rows, batch.Options)
	if err != nil {
		return nil, false, err
	}

	if len(items) > remaining {
		return items[:remaining], true, nil
	}
	return items, false, nil
}

func (uc *ProcessBatchUseCase) completeFile(
	ctx context.Context,
	file *domain.FileResult,
	recordCount int,
	results []domain.CategoryResponseItem,
) error {
	if err := uc.repo.CompleteFile(ctx, file.ID, recordCount, results); err != nil {
		return fmt.Errorf("complete file %s: %w", file.ID, err)
	}
	file.Status = domain.FileCompleted
	file.RecordCount = recordCount
	file.Results = results
	uc.notify(*file)
	return nil
}

func (uc *ProcessBatchUseCase) failFile(ctx context.Context, file *domain.FileResult, message string) error {
	if err := uc.repo.FailFile(ctx, file.ID, message); err != nil {
		return fmt.Errorf("fail file %s: %w", file.ID, err)
	}
	file.Status = domain.FileError
	file.Error = message
	uc.notify(*file)
	return nil
}

func (uc *ProcessBatchUseCase) notify(file domain.FileResult) {
	if uc.observer != nil {
		uc.observer(file)
	}
}
