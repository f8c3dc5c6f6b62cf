package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

type fakeRepo struct {
	batches map[string]*domain.Batch
	files   map[string]*domain.FileResult

	created       []*domain.Batch
	statusUpdates []domain.BatchStatus
	finishSummary string
	finishLimit   bool
	finished      bool

	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		batches: map[string]*domain.Batch{},
		files:   map[string]*domain.FileResult{},
	}
}

func (r *fakeRepo) addBatch(batch *domain.Batch) {
	r.batches[batch.ID] = batch
	for i := range batch.Files {
		r.files[batch.Files[i].ID] = &batch.Files[i]
	}
}

func (r *fakeRepo) CreateBatch(_ context.Context, batch *domain.Batch) error {
	if r.failCreate != nil {
		return r.failCreate
	}
	r.created = append(r.created, batch)
	r.addBatch(batch)
	return nil
}

func (r *fakeRepo) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	batch, ok := r.batches[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", errors.New("id="+id))
	}
	return batch, nil
}

func (r *fakeRepo) UpdateBatchStatus(_ context.Context, id string, status domain.BatchStatus) error {
	batch, ok := r.batches[id]
	if !ok {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", errors.New("id="+id))
	}
	batch.Status = status
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

func (r *fakeRepo) FinishBatch(_ context.Context, id string, summary string, limitHit bool) error {
	batch, ok := r.batches[id]
	if !ok {
		return domain.WrapError(domain.ErrBatchNotFound, "finish batch", errors.New("id="+id))
	}
	batch.Status = domain.BatchCompleted
	batch.Summary = summary
	batch.LimitHit = limitHit
	r.finishSummary = summary
	r.finishLimit = limitHit
	r.finished = true
	return nil
}

func (r *fakeRepo) GetFile(_ context.Context, batchID, fileID string) (*domain.FileResult, error) {
	file, ok := r.files[fileID]
	if !ok || file.BatchID != batchID {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get file", errors.New("id="+fileID))
	}
	return file, nil
}

func (r *fakeRepo) MarkFileProcessing(_ context.Context, fileID string) error {
	file, ok := r.files[fileID]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "mark file processing", errors.New("id="+fileID))
	}
	file.Status = domain.FileProcessing
	return nil
}

func (r *fakeRepo) CompleteFile(_ context.Context, fileID string, recordCount int, results []domain.CategoryResponseItem) error {
	file, ok := r.files[fileID]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "complete file", errors.New("id="+fileID))
	}
	file.Status = domain.FileCompleted
	file.RecordCount = recordCount
	file.Results = results
	return nil
}

func (r *fakeRepo) FailFile(_ context.Context, fileID string, message string) error {
	file, ok := r.files[fileID]
	if !ok {
		return domain.WrapError(domain.ErrFileNotFound, "fail file", errors.New("id="+fileID))
	}
	file.Status = domain.FileError
	file.Error = message
	return nil
}

type fakeStorage struct {
	objects  map[string][]byte
	failSave error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	if s.failSave != nil {
		return s.failSave
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.objects[key] = raw
	return nil
}

func (s *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeQueue struct {
	published   []string
	failPublish error
}

func (q *fakeQueue) PublishBatchAccepted(_ context.Context, batchID string) error {
	if q.failPublish != nil {
		return q.failPublish
	}
	q.published = append(q.published, batchID)
	return nil
}

func (q *fakeQueue) SubscribeBatchAccepted(context.Context, func(context.Context, string) error) error {
	return nil
}

// fakeParser decodes the scripted file contents used across these tests:
// "items:N" yields N rows, "parse-error" fails, "build-error" yields a row
// the fake builder rejects.
type fakeParser struct{}

func (fakeParser) Parse(data []byte) ([]domain.RawRow, error) {
	s := string(data)
	switch {
	case s == "parse-error":
		return nil, domain.WrapError(domain.ErrParse, "open workbook", errors.New("scripted failure"))
	case s == "build-error":
		return []domain.RawRow{{"A": "BAD"}}, nil
	case strings.HasPrefix(s, "items:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "items:"))
		if err != nil {
			return nil, err
		}
		rows := make([]domain.RawRow, n)
		for i := range rows {
			rows[i] = domain.RawRow{"A": strconv.Itoa(i + 1)}
		}
		return rows, nil
	}
	return nil, fmt.Errorf("unscripted content %q", s)
}

type fakeBuilder struct{}

func (fakeBuilder) Build(rows []domain.RawRow, opts domain.RequestOptions) ([]domain.CategoryRequestItem, error) {
	items := make([]domain.CategoryRequestItem, 0, len(rows))
	for _, row := range rows {
		if row["A"] == "BAD" {
			return nil, domain.WrapError(domain.ErrRowValidation, "row 3 (Product 1)", errors.New("scripted failure"))
		}
		n, _ := strconv.Atoi(row["A"])
		items = append(items, domain.CategoryRequestItem{
			CategoryInputData: domain.CategoryInputData{ProductNumber: n, SalesStatus: "Unknown"},
			RequestOptions:    opts,
		})
	}
	return items, nil
}

type fakeCategorizer struct {
	calls   [][]domain.CategoryRequestItem
	failOn  map[int]error
	perCall int
}

func (c *fakeCategorizer) Submit(_ context.Context, items []domain.CategoryRequestItem) ([]domain.CategoryResponseItem, error) {
	call := c.perCall
	c.perCall++
	c.calls = append(c.calls, items)
	if err, ok := c.failOn[call]; ok {
		return nil, err
	}
	results := make([]domain.CategoryResponseItem, len(items))
	for i, item := range items {
		results[i].ProductNumber = item.ProductNumber
	}
	return results, nil
}
