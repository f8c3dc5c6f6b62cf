package domain

import (
	"fmt"
	"time"
)

type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
)

type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileError      FileStatus = "error"
)

// Terminal reports whether a file status admits no further transitions.
func (s FileStatus) Terminal() bool {
	return s == FileCompleted || s == FileError
}

// CanTransition encodes the per-file state machine:
// pending -> processing -> {completed, error}.
func (s FileStatus) CanTransition(to FileStatus) bool {
	switch s {
	case FilePending:
		return to == FileProcessing || to == FileError
	case FileProcessing:
		return to == FileCompleted || to == FileError
	default:
		return false
	}
}

// FileResult is the per-file outcome tracked through one batch run.
type FileResult struct {
	ID          string                 `json:"id"`
	BatchID     string                 `json:"batch_id"`
	Filename    string                 `json:"filename"`
	StoragePath string                 `json:"-"`
	Position    int                    `json:"position"`
	Status      FileStatus             `json:"status"`
	RecordCount int                    `json:"record_count,omitempty"`
	Results     []CategoryResponseItem `json:"results,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Batch is one upload session: an ordered set of files sharing a record
// budget and submission options.
type Batch struct {
	ID         string         `json:"id"`
	Status     BatchStatus    `json:"status"`
	Options    RequestOptions `json:"options"`
	MaxRecords int            `json:"max_records"`
	LimitHit   bool           `json:"limit_hit"`
	Summary    string         `json:"summary,omitempty"`
	Files      []FileResult   `json:"files,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// BatchSummary aggregates terminal per-file outcomes.
type BatchSummary struct {
	CompletedFiles int
	ErrorFiles     int
	TotalRecords   int
	TotalResults   int
	LimitHit       bool
	MaxRecords     int
}

// Summarize folds the per-file outcomes of a finished run.
func Summarize(files []FileResult, maxRecords int, limitHit bool) BatchSummary {
	sum := BatchSummary{LimitHit: limitHit, MaxRecords: maxRecords}
	for _, f := range files {
		switch f.Status {
		case FileCompleted:
			sum.CompletedFiles++
			sum.TotalRecords += f.RecordCount
			sum.TotalResults += len(f.Results)
		case FileError:
			sum.ErrorFiles++
		}
	}
	return sum
}

// Message renders the user-facing one-liner. The wording differs depending on
// whether the record budget was hit during the run, not just the numbers.
func (s BatchSummary) Message() string {
	total := s.CompletedFiles + s.ErrorFiles
	if s.TotalRecords == 0 && s.TotalResults == 0 {
		return "no valid records found in the uploaded files"
	}
	if s.LimitHit {
		return fmt.Sprintf(
			"record limit of %d reached: categorized %d records from %d of %d files (%d failed or skipped)",
			s.MaxRecords, s.TotalResults, s.CompletedFiles, total, s.ErrorFiles,
		)
	}
	return fmt.Sprintf(
		"categorized %d records from %d of %d files (%d failed)",
		s.TotalResults, s.CompletedFiles, total, s.ErrorFiles,
	)
}
