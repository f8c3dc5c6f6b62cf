package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/infrastructure/resilience"
)

const maxErrorBodyBytes = 64 << 10

// Client submits validated batches to the remote categorization endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(endpoint string) *Client {
	return NewWithOptions(endpoint, Options{})
}

func NewWithOptions(endpoint string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.Executor,
	}
}

// Submit posts one batch and returns the enriched items. Submissions over
// the item ceiling are rejected locally; an empty submission succeeds
// trivially. Neither makes a network call. Every failure comes back as a
// kinded error whose message is a displayable single line.
func (c *Client) Submit(ctx context.Context, items []domain.CategoryRequestItem) ([]domain.CategoryResponseItem, error) {
	if len(items) > domain.MaxSubmissionItems {
		return nil, domain.WrapError(
			domain.ErrLimitExceeded,
			"submit batch",
			fmt.Errorf("%d items exceed the %d item limit", len(items), domain.MaxSubmissionItems),
		)
	}
	if len(items) == 0 {
		return []domain.CategoryResponseItem{}, nil
	}

	var results []domain.CategoryResponseItem
	call := func(callCtx context.Context) error {
		var err error
		results, err = c.post(callCtx, items)
		return err
	}

	if c.executor != nil {
		if err := c.executor.Execute(ctx, "categorize.submit", call, classifySubmitError); err != nil {
			return nil, err
		}
		return results, nil
	}
	if err := call(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) post(ctx context.Context, items []domain.CategoryRequestItem) ([]domain.CategoryResponseItem, error) {
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNetwork, "submit batch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Err:        errorFromBody(resp.StatusCode, raw),
		}
	}

	var results []domain.CategoryResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "decode response", err)
	}
	if results == nil {
		results = []domain.CategoryResponseItem{}
	}
	return results, nil
}
