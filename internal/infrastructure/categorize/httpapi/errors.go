package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

// maxDetailLines caps how many remote validation entries one message lists.
const maxDetailLines = 3

// HTTPStatusError carries the HTTP status of a rejected submission alongside
// the classified error built from the response body.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	if e == nil || e.Err == nil {
		return "categorization request failed"
	}
	return e.Err.Error()
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

type detailEntry struct {
	Type string `json:"type"`
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
}

// errorFromBody classifies a non-2xx response body. Two shapes are
// recognized: a structured validation body with a detail array, and a
// generic {error} object. Anything else reports the bare status.
func errorFromBody(statusCode int, body []byte) error {
	var structured struct {
		Detail []detailEntry `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil && len(structured.Detail) > 0 {
		return domain.WrapError(
			domain.ErrRemoteValidation,
			"submit batch",
			errors.New(formatDetail(structured.Detail)),
		)
	}

	var generic struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &generic); err == nil && strings.TrimSpace(generic.Error) != "" {
		return domain.WrapError(domain.ErrRemoteRejected, "submit batch", errors.New(generic.Error))
	}

	return domain.WrapError(
		domain.ErrRemoteRejected,
		"submit batch",
		fmt.Errorf("request failed with status %d", statusCode),
	)
}

func formatDetail(entries []detailEntry) string {
	lines := make([]string, 0, maxDetailLines)
	for _, entry := range entries {
		if len(lines) == maxDetailLines {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", detailPath(entry.Loc), friendlyMessage(entry)))
	}
	out := strings.Join(lines, "; ")
	if extra := len(entries) - len(lines); extra > 0 {
		out = fmt.Sprintf("%s; +%d more", out, extra)
	}
	return out
}

// detailPath renders a loc array like ["body", 0, "price"] as "body.0.price".
func detailPath(loc []any) string {
	if len(loc) == 0 {
		return "request"
	}
	parts := make([]string, 0, len(loc))
	for _, seg := range loc {
		switch v := seg.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, strconv.Itoa(int(v)))
		default:
			parts = append(parts, fmt.Sprintf("%v", v))
		}
	}
	return strings.Join(parts, ".")
}

// friendlyMessage rewrites the remote validator's well-known message codes
// into wording a user can act on; everything else passes through verbatim.
func friendlyMessage(entry detailEntry) string {
	switch entry.Type {
	case "missing":
		return "field is required"
	case "list_type":
		return "expected a list of values"
	}
	switch {
	case strings.Contains(entry.Msg, "valid list"):
		return "expected a list of values"
	case entry.Msg == "":
		return "invalid value"
	}
	return entry.Msg
}
