package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	options JSONB NOT NULL,
	max_records INTEGER NOT NULL,
	limit_hit BOOLEAN NOT NULL DEFAULT FALSE,
	summary TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_files (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	position INTEGER NOT NULL,
	status TEXT NOT NULL,
	record_count INTEGER NOT NULL DEFAULT 0,
	results JSONB,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batches_status ON batches(status);
CREATE INDEX IF NOT EXISTS idx_batch_files_batch ON batch_files(batch_id, position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	optionsJSON, err := json.Marshal(batch.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO batches (id, status, options, max_records, limit_hit, summary, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		batch.ID, string(batch.Status), optionsJSON, batch.MaxRecords, batch.LimitHit, batch.Summary,
		batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, file := range batch.Files {
		_, err = tx.ExecContext(ctx, `
INSERT INTO batch_files (id, batch_id, filename, storage_path, position, status, record_count, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			file.ID, file.BatchID, file.Filename, file.StoragePath, file.Position, string(file.Status),
			file.RecordCount, file.Error, file.CreatedAt, file.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert batch file %s: %w", file.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, options, max_records, limit_hit, summary, created_at, updated_at
FROM batches
WHERE id = $1
`, id)

	var batch domain.Batch
	var status string
	var optionsRaw []byte
	var summary sql.NullString

	err := row.Scan(
		&batch.ID, &status, &optionsRaw, &batch.MaxRecords, &batch.LimitHit, &summary,
		&batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	batch.Status = domain.BatchStatus(status)
	batch.Summary = summary.String
	if err := json.Unmarshal(optionsRaw, &batch.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}

	files, err := r.listFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	batch.Files = files
	return &batch, nil
}

func (r *BatchRepository) listFiles(ctx context.Context, batchID string) ([]domain.FileResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, batch_id, filename, storage_path, position, status, record_count, results, error_message, created_at, updated_at
FROM batch_files
WHERE batch_id = $1
ORDER BY position
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileResult
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch files: %w", err)
	}
	return files, nil
}

func (r *BatchRepository) GetFile(ctx context.Context, batchID, fileID string) (*domain.FileResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, batch_id, filename, storage_path, position, status, record_count, results, error_message, created_at, updated_at
FROM batch_files
WHERE batch_id = $1 AND id = $2
`, batchID, fileID)

	file, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFileNotFound, "get file", fmt.Errorf("id=%s", fileID))
		}
		return nil, err
	}
	return file, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*domain.FileResult, error) {
	var file domain.FileResult
	var status string
	var resultsRaw []byte
	var errMessage sql.NullString

	err := row.Scan(
		&file.ID, &file.BatchID, &file.Filename, &file.StoragePath, &file.Position, &status,
		&file.RecordCount, &resultsRaw, &errMessage, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan batch file: %w", err)
	}
	file.Status = domain.FileStatus(status)
	file.Error = errMessage.String
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &file.Results); err != nil {
			return nil, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	return &file, nil
}

func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return requireRow(res, domain.ErrBatchNotFound, "update batch status", id)
}

func (r *BatchRepository) FinishBatch(ctx context.Context, id string, summary string, limitHit bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, summary = $3, limit_hit = $4, updated_at = $5
WHERE id = $1
`, id, string(domain.BatchCompleted), summary, limitHit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return requireRow(res, domain.ErrBatchNotFound, "finish batch", id)
}

// MarkFileProcessing moves a pending file to processing. Terminal files stay
// terminal: the guard refuses any other starting state.
func (r *BatchRepository) MarkFileProcessing(ctx context.Context, fileID string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batch_files
SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
`, fileID, string(domain.FileProcessing), time.Now().UTC(), string(domain.FilePending))
	if err != nil {
		return fmt.Errorf("mark file processing: %w", err)
	}
	return requireRow(res, domain.ErrFileNotFound, "mark file processing", fileID)
}

func (r *BatchRepository) CompleteFile(ctx context.Context, fileID string, recordCount int, results []domain.CategoryResponseItem) error {
	if results == nil {
		results = []domain.CategoryResponseItem{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE batch_files
SET status = $2, record_count = $3, results = $4, updated_at = $5
WHERE id = $1 AND status IN ($6, $7)
`, fileID, string(domain.FileCompleted), recordCount, resultsJSON, time.Now().UTC(),
		string(domain.FilePending), string(domain.FileProcessing))
	if err != nil {
		return fmt.Errorf("complete file: %w", err)
	}
	return requireRow(res, domain.ErrFileNotFound, "complete file", fileID)
}

func (r *BatchRepository) FailFile(ctx context.Context, fileID string, message string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batch_files
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status IN ($5, $6)
`, fileID, string(domain.FileError), message, time.Now().UTC(),
		string(domain.FilePending), string(domain.FileProcessing))
	if err != nil {
		return fmt.Errorf("fail file: %w", err)
	}
	return requireRow(res, domain.ErrFileNotFound, "fail file", fileID)
}

func requireRow(res sql.Result, kind error, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s not updatable", id))
	}
	return nil
}
