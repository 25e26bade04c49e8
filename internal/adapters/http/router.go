package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

const (
	analysesPath    = "/v1/analyses"
	analysisPrefix  = "/v1/analyses/"
	multipartMemory = 32 << 20
	backpressureMax = 250 * time.Millisecond
)

// Metrics is the subset of the Prometheus collectors the router drives.
type Metrics interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
	RecordUpload(kind string, size int64)
}

type Options struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	Metrics        Metrics
}

type Router struct {
	analyzer ports.MediaAnalyzer
	reader   ports.AnalysisReader
	opts     Options
	openAPI  []byte
}

func NewRouter(analyzer ports.MediaAnalyzer, reader ports.AnalysisReader, opts Options) (*Router, error) {
	doc, err := loadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Router{
		analyzer: analyzer,
		reader:   reader,
		opts:     opts,
		openAPI:  doc,
	}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/openapi.json", rt.openAPIDocument)
	mux.HandleFunc(analysesPath, rt.analyses)
	mux.HandleFunc(analysisPrefix, rt.analysisByID)
	mux.HandleFunc("/v1/captures", rt.createCapture)
	if rt.opts.Metrics != nil {
		mux.Handle("/metrics", rt.opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, backpressureMax)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(rt.openAPI)
}

func (rt *Router) analyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createAnalysis(w, r)
	case http.MethodGet:
		rt.listAnalyses(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) createAnalysis(w http.ResponseWriter, r *http.Request) {
	file, header, err := rt.formFile(w, r, "file")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	var kind domain.MediaKind
	if raw := strings.TrimSpace(r.FormValue("media_kind")); raw != "" {
		if kind, err = domain.ParseMediaKind(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	forceAuthentic, err := formBool(r, "force_authentic")
	if err != nil {
		writeError(w, r, err)
		return
	}
	async, err := formBool(r, "async")
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := ports.UploadRequest{
		Kind:           kind,
		FileName:       header.Filename,
		MimeType:       header.Header.Get("Content-Type"),
		ForceAuthentic: forceAuthentic,
		Body:           file,
	}

	var analysis *domain.Analysis
	status := http.StatusOK
	if async {
		analysis, err = rt.analyzer.Submit(r.Context(), req)
		status = http.StatusAccepted
	} else {
		analysis, err = rt.analyzer.Analyze(r.Context(), req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordUpload(analysis, header.Size)
	writeJSON(w, status, analysis)
}

func (rt *Router) createCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	file, header, err := rt.formFile(w, r, "image")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	analysis, err := rt.analyzer.Capture(r.Context(), ports.CaptureRequest{
		MimeType: header.Header.Get("Content-Type"),
		Body:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.recordUpload(analysis, header.Size)
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) listAnalyses(w http.ResponseWriter, r *http.Request) {
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind limit", err))
		return
	}
	if limit < 0 {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind limit", errors.New("limit must be positive")))
		return
	}

	items, err := rt.reader.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (rt *Router) analysisByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rawID, suffix, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, analysisPrefix), "/")
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", rawID, &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil || strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "analysis id is required"})
		return
	}

	switch suffix {
	case "":
		analysis, err := rt.reader.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, analysis)
	case "report":
		rt.writeReport(w, r, rt.reader.Report, id)
	case "report.xlsx":
		rt.writeReport(w, r, rt.reader.Workbook, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) writeReport(
	w http.ResponseWriter,
	r *http.Request,
	render func(context.Context, string) (domain.ReportFile, error),
	id string,
) {
	file, err := render(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

func (rt *Router) formFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes+multipartMemory/32)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "read form file", fmt.Errorf("multipart field '%s' is required", field))
	}
	return file, header, nil
}

func (rt *Router) recordUpload(analysis *domain.Analysis, size int64) {
	if rt.opts.Metrics == nil || analysis == nil {
		return
	}
	rt.opts.Metrics.RecordUpload(string(analysis.MediaKind), size)
}

func formBool(r *http.Request, field string) (bool, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return false, nil
	}
	var out bool
	if err := runtime.BindStringToObject(raw, &out); err != nil {
		return false, domain.WrapError(domain.ErrInvalidInput, "bind "+field, err)
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("write_json_failed", "error", err)
	}
}
