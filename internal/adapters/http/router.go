package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/msavelyev/listing-categorizer/internal/config"
	"github.com/msavelyev/listing-categorizer/internal/core/domain"
	"github.com/msavelyev/listing-categorizer/internal/core/ports"
	"github.com/msavelyev/listing-categorizer/internal/observability/metrics"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 64 << 20

type Router struct {
	cfg      config.Config
	submitUC ports.BatchSubmitter
	readUC   ports.BatchReader
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	submitUC ports.BatchSubmitter,
	readUC ports.BatchReader,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		submitUC: submitUC,
		readUC:   readUC,
		metrics:  serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/batches", rt.createBatch)
	mux.HandleFunc("GET /v1/batches/{id}", rt.getBatch)
	mux.HandleFunc("GET /v1/batches/{id}/files/{fileID}/results", rt.getFileResults)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = accessLogMiddleware(handler)
	handler = metricsMiddleware(rt.metrics, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) createBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}
	if max := rt.cfg.MaxFilesPerUpload; max > 0 && len(fileHeaders) > max {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("at most %d files per upload, got %d", max, len(fileHeaders)),
		})
		return
	}

	files, err := readUploadedFiles(fileHeaders)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts, err := rt.requestOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	batch, err := rt.submitUC.Submit(r.Context(), files, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.BatchAccepted(len(batch.Files))
	}
	writeJSON(w, http.StatusAccepted, batch)
}

func (rt *Router) getBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := rt.readUC.GetBatch(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (rt *Router) getFileResults(w http.ResponseWriter, r *http.Request) {
	results, err := rt.readUC.GetFileResults(r.Context(), r.PathValue("id"), r.PathValue("fileID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// requestOptions builds the submission options from the form: locale sets the
// default language, the remaining fields override the submission defaults.
func (rt *Router) requestOptions(r *http.Request) (domain.RequestOptions, error) {
	locale := r.FormValue("language")
	if locale == "" {
		locale = rt.cfg.DefaultLanguage
	}
	opts := domain.DefaultRequestOptions(domain.ParseLanguage(locale))

	if v := r.FormValue("semantic_top_k"); v != "" {
		topK, err := strconv.Atoi(v)
		if err != nil {
			return domain.RequestOptions{}, fmt.Errorf("semantic_top_k must be an integer")
		}
		opts.SemanticTopK = topK
	}

	flags := []struct {
		name   string
		target *bool
	}{
		{"first_category_via_llm", &opts.FirstCategoryViaLLM},
		{"descriptive_title_via_llm", &opts.DescriptiveTitleViaLLM},
		{"round_out_keywords_via_llm", &opts.RoundOutKeywordsViaLLM},
		{"broad_keyword_matching", &opts.BroadKeywordMatching},
	}
	for _, flag := range flags {
		v := r.FormValue(flag.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return domain.RequestOptions{}, fmt.Errorf("%s must be a boolean", flag.name)
		}
		*flag.target = parsed
	}
	return opts, nil
}

func readUploadedFiles(headers []*multipart.FileHeader) ([]ports.UploadedFile, error) {
	files := make([]ports.UploadedFile, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open uploaded file %s", header.Filename)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read uploaded file %s", header.Filename)
		}
		files = append(files, ports.UploadedFile{Filename: header.Filename, Data: data})
	}
	return files, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.ErrBatchNotFound), domain.IsKind(err, domain.ErrFileNotFound):
		status = http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": singleLine(err)})
}

func singleLine(err error) string {
	return strings.Join(strings.Fields(err.Error()), " ")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
