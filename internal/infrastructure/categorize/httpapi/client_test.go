package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/msavelyev/listing-categorizer/internal/core/domain"
)

func makeItems(n int) []domain.CategoryRequestItem {
	items := make([]domain.CategoryRequestItem, n)
	for i := range items {
		items[i].ProductNumber = i + 1
		items[i].ProductName = "Product"
		items[i].SalesStatus = "Unknown"
		items[i].RequestOptions = domain.DefaultRequestOptions(domain.LanguageEnglish)
	}
	return items
}

func TestSubmitRejectsOversizedBatchLocally(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(domain.MaxSubmissionItems+1))
	if !domain.IsKind(err, domain.ErrLimitExceeded) {
		t.Fatalf("expected limit exceeded kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "3001") || !strings.Contains(err.Error(), "3000") {
		t.Errorf("counts missing from message: %q", err.Error())
	}
	if calls.Load() != 0 {
		t.Errorf("server was called %d times, want 0", calls.Load())
	}
}

func TestSubmitEmptyBatchSucceedsWithoutCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := New(server.URL)
	results, err := client.Submit(context.Background(), nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
	if calls.Load() != 0 {
		t.Errorf("server was called %d times, want 0", calls.Load())
	}
}

func TestSubmitSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"product_number":1,"product_name":"Enriched","category_number":42}]`))
	}))
	defer server.Close()

	client := New(server.URL)
	results, err := client.Submit(context.Background(), makeItems(1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ProductName != "Enriched" {
		t.Errorf("ProductName = %q", results[0].ProductName)
	}
	if results[0].CategoryNumber == nil || *results[0].CategoryNumber != 42 {
		t.Errorf("CategoryNumber = %v", results[0].CategoryNumber)
	}
	if results[0].Brand != nil {
		t.Errorf("Brand should stay nil, got %v", *results[0].Brand)
	}
}

func TestSubmitRemoteValidationDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"type":"missing","loc":["body",0,"price"],"msg":"Field required"}]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if !domain.IsKind(err, domain.ErrRemoteValidation) {
		t.Fatalf("expected remote validation kind, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "body.0.price") {
		t.Errorf("loc path missing: %q", msg)
	}
	if !strings.Contains(msg, "field is required") {
		t.Errorf("friendly message missing: %q", msg)
	}
}

func TestSubmitRemoteValidationDetailCapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[
			{"type":"missing","loc":["body",0,"a"],"msg":""},
			{"type":"missing","loc":["body",1,"b"],"msg":""},
			{"type":"missing","loc":["body",2,"c"],"msg":""},
			{"type":"missing","loc":["body",3,"d"],"msg":""},
			{"type":"missing","loc":["body",4,"e"],"msg":""}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "+2 more") {
		t.Errorf("overflow marker missing: %q", err.Error())
	}
	if strings.Contains(err.Error(), "body.3.d") {
		t.Errorf("fourth entry should be elided: %q", err.Error())
	}
}

func TestSubmitGenericErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"model is warming up"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if !domain.IsKind(err, domain.ErrRemoteRejected) {
		t.Fatalf("expected remote rejected kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "model is warming up") {
		t.Errorf("verbatim message missing: %q", err.Error())
	}
}

func TestSubmitUnparseableErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>nope</html>`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if !domain.IsKind(err, domain.ErrRemoteRejected) {
		t.Fatalf("expected remote rejected kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "request failed with status 500") {
		t.Errorf("status fallback missing: %q", err.Error())
	}
}

func TestSubmitNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func TestSubmitMalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer server.Close()

	client := New(server.URL)
	_, err := client.Submit(context.Background(), makeItems(1))
	if !domain.IsKind(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response kind, got %v", err)
	}
}

func TestErrorFromBodyListTypeMessage(t *testing.T) {
	err := errorFromBody(422, []byte(`{"detail":[{"type":"list_type","loc":["body"],"msg":"Input should be a valid list"}]}`))
	if !strings.Contains(err.Error(), "expected a list of values") {
		t.Errorf("list wording missing: %q", err.Error())
	}
}

func TestHTTPStatusErrorUnwraps(t *testing.T) {
	inner := domain.WrapError(domain.ErrRemoteRejected, "submit batch", context.DeadlineExceeded)
	err := &HTTPStatusError{StatusCode: 503, Err: inner}
	if !domain.IsKind(err, domain.ErrRemoteRejected) {
		t.Error("kind should survive the status wrapper")
	}
}
