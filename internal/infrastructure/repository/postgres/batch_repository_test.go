package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

func newMockRepo(t *testing.T) (*BatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBatchRepository(db), mock
}

func TestGetBatchNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT id, status, options`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBatch(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Errorf("expected batch not found kind, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetBatchWithFiles(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	batchCols := []string{"id", "status", "options", "max_records", "limit_hit", "summary", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT id, status, options`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows(batchCols).AddRow(
			"batch-1", "completed", []byte(`{"language":"en","semantic_top_k":15}`), 3000, true, "done", now, now,
		))

	fileCols := []string{"id", "batch_id", "filename", "storage_path", "position", "status", "record_count", "results", "error_message", "created_at", "updated_at"}
	mock.ExpectQuery(`SELECT id, batch_id, filename`).
		WithArgs("batch-1").
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow("file-a", "batch-1", "a.xlsx", "file-a_a.xlsx", 0, "completed", 2, []byte(`[{"product_number":1},{"product_number":2}]`), nil, now, now).
			AddRow("file-b", "batch-1", "b.xlsx", "file-b_b.xlsx", 1, "error", 0, nil, "parse failure", now, now),
		)

	batch, err := repo.GetBatch(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.Status != domain.BatchCompleted || !batch.LimitHit || batch.Summary != "done" {
		t.Errorf("unexpected batch: %+v", batch)
	}
	if batch.Options.Language != domain.LanguageEnglish || batch.Options.SemanticTopK != 15 {
		t.Errorf("options not unmarshaled: %+v", batch.Options)
	}
	if len(batch.Files) != 2 {
		t.Fatalf("got %d files", len(batch.Files))
	}
	if len(batch.Files[0].Results) != 2 {
		t.Errorf("results not unmarshaled: %+v", batch.Files[0].Results)
	}
	if batch.Files[1].Error != "parse failure" {
		t.Errorf("error message = %q", batch.Files[1].Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateBatchInsertsFilesInOneTx(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO batch_files`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO batch_files`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := &domain.Batch{
		ID:         "batch-1",
		Status:     domain.BatchPending,
		Options:    domain.DefaultRequestOptions(domain.LanguageEnglish),
		MaxRecords: 3000,
		CreatedAt:  now,
		UpdatedAt:  now,
		Files: []domain.FileResult{
			{ID: "file-a", BatchID: "batch-1", Filename: "a.xlsx", StoragePath: "file-a_a.xlsx", Status: domain.FilePending, CreatedAt: now, UpdatedAt: now},
			{ID: "file-b", BatchID: "batch-1", Filename: "b.xlsx", StoragePath: "file-b_b.xlsx", Position: 1, Status: domain.FilePending, CreatedAt: now, UpdatedAt: now},
		},
	}
	if err := repo.CreateBatch(context.Background(), batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetFileNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT id, batch_id, filename`).
		WithArgs("batch-1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetFile(context.Background(), "batch-1", "missing")
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Errorf("expected file not found kind, got %v", err)
	}
}

func TestMarkFileProcessingGuardsState(t *testing.T) {
	repo, mock := newMockRepo(t)
	// Zero rows touched: the file exists but is not pending anymore.
	mock.ExpectExec(`UPDATE batch_files`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkFileProcessing(context.Background(), "file-a")
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Errorf("expected file not found kind, got %v", err)
	}
}

func TestCompleteFileGuardsTerminalState(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE batch_files`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CompleteFile(context.Background(), "file-a", 3, nil)
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Errorf("expected file not found kind, got %v", err)
	}
}

func TestFailFileSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE batch_files`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.FailFile(context.Background(), "file-a", "boom"); err != nil {
		t.Errorf("FailFile: %v", err)
	}
}

func TestFinishBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE batches`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.FinishBatch(context.Background(), "batch-1", "all done", true); err != nil {
		t.Errorf("FinishBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
