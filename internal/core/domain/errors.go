package domain

import (
	"errors"
	"fmt"
)

var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrFileNotFound  = errors.New("file not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")

	// Pipeline error kinds. Each maps to one failure mode a file or a
	// submission can end in; messages built around them are shown verbatim.
	ErrParse             = errors.New("spreadsheet parse failure")
	ErrRowValidation     = errors.New("row validation failure")
	ErrLimitExceeded     = errors.New("record limit exceeded")
	ErrRemoteValidation  = errors.New("remote validation rejected")
	ErrRemoteRejected    = errors.New("remote service rejected")
	ErrMalformedResponse = errors.New("malformed remote response")
	ErrNetwork           = errors.New("network failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
