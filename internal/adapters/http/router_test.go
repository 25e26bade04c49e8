package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

type analyzerFake struct {
	last      ports.UploadRequest
	lastBody  string
	mode      string
	err       error
	captureCT string
}

func (f *analyzerFake) record(mode string, req ports.UploadRequest) (*domain.Analysis, error) {
	f.mode = mode
	f.last = req
	body, _ := io.ReadAll(req.Body)
	f.lastBody = string(body)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Analysis{ID: "a-1", FileName: req.FileName, MediaKind: domain.MediaImage, Status: domain.StatusCompleted}, nil
}

func (f *analyzerFake) Analyze(_ context.Context, req ports.UploadRequest) (*domain.Analysis, error) {
	return f.record("sync", req)
}

func (f *analyzerFake) Submit(_ context.Context, req ports.UploadRequest) (*domain.Analysis, error) {
	return f.record("async", req)
}

func (f *analyzerFake) Capture(_ context.Context, req ports.CaptureRequest) (*domain.Analysis, error) {
	f.captureCT = req.MimeType
	return f.record("capture", ports.UploadRequest{Body: req.Body, FileName: "webcam-capture-1.jpg"})
}

type readerFake struct {
	err       error
	listLimit int
}

func (f *readerFake) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Analysis{ID: id, Status: domain.StatusQueued}, nil
}

func (f *readerFake) List(_ context.Context, limit int) ([]domain.Analysis, error) {
	f.listLimit = limit
	return []domain.Analysis{{ID: "x"}}, nil
}

func (f *readerFake) Report(_ context.Context, id string) (domain.ReportFile, error) {
	if f.err != nil {
		return domain.ReportFile{}, f.err
	}
	return domain.ReportFile{Name: "deepfake-analysis-1.txt", ContentType: "text/plain; charset=utf-8", Body: []byte("report for " + id)}, nil
}

func (f *readerFake) Workbook(_ context.Context, id string) (domain.ReportFile, error) {
	return domain.ReportFile{Name: "deepfake-analysis-1.xlsx", ContentType: "application/xlsx", Body: []byte("PK")}, nil
}

func newTestHandler(t *testing.T, analyzer *analyzerFake, reader *readerFake, opts Options) http.Handler {
	t.Helper()
	router, err := NewRouter(analyzer, reader, opts)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return router.Handler()
}

func multipartRequest(t *testing.T, path, field, fileName, contentType, body string, values map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte(body))
	for k, v := range values {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateAnalysisSync(t *testing.T) {
	analyzer := &analyzerFake{}
	handler := newTestHandler(t, analyzer, &readerFake{}, Options{})

	req := multipartRequest(t, "/v1/analyses", "file", "face.png", "image/png", "png-bytes", map[string]string{
		"media_kind":      "IMAGE",
		"force_authentic": "true",
	})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if analyzer.mode != "sync" || analyzer.last.Kind != domain.MediaImage || !analyzer.last.ForceAuthentic {
		t.Fatalf("unexpected request %+v (mode %s)", analyzer.last, analyzer.mode)
	}
	if analyzer.last.MimeType != "image/png" || analyzer.lastBody != "png-bytes" || analyzer.last.FileName != "face.png" {
		t.Fatalf("unexpected upload fields %+v body=%q", analyzer.last, analyzer.lastBody)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestCreateAnalysisAsyncReturns202(t *testing.T) {
	analyzer := &analyzerFake{}
	handler := newTestHandler(t, analyzer, &readerFake{}, Options{})

	req := multipartRequest(t, "/v1/analyses", "file", "clip.mp4", "video/mp4", "mp4", map[string]string{"async": "1"})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted || analyzer.mode != "async" {
		t.Fatalf("expected 202 async, got %d mode=%s", res.Code, analyzer.mode)
	}
}

func TestCreateAnalysisValidation(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{
			name: "bad media kind",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/v1/analyses", "file", "a.png", "image/png", "x", map[string]string{"media_kind": "hologram"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "bad bool",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/v1/analyses", "file", "a.png", "image/png", "x", map[string]string{"async": "maybe"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "missing file field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/v1/analyses", "other", "a.png", "image/png", "x", nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/v1/analyses", strings.NewReader("{}"))
			},
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, &analyzerFake{}, &readerFake{}, Options{})
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, tt.req(t))
			if res.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, res.Code, res.Body.String())
			}
		})
	}
}

func TestCreateAnalysisMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: domain.WrapError(domain.ErrUnsupportedMedia, "resolve", errors.New("pdf")), status: http.StatusUnsupportedMediaType},
		{err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("nats down")), status: http.StatusServiceUnavailable},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		handler := newTestHandler(t, &analyzerFake{err: tt.err}, &readerFake{}, Options{})
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, multipartRequest(t, "/v1/analyses", "file", "a.bin", "application/pdf", "x", nil))
		if res.Code != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, res.Code)
		}
	}
}

func TestCreateCapture(t *testing.T) {
	analyzer := &analyzerFake{}
	handler := newTestHandler(t, analyzer, &readerFake{}, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, multipartRequest(t, "/v1/captures", "image", "blob", "image/jpeg", "frame", nil))
	if res.Code != http.StatusOK || analyzer.mode != "capture" || analyzer.captureCT != "image/jpeg" {
		t.Fatalf("unexpected capture handling: %d mode=%s ct=%s", res.Code, analyzer.mode, analyzer.captureCT)
	}
}

func TestGetAnalysisByIDReturns404ForNotFound(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrAnalysisNotFound, "get", errors.New("id=missing"))}
	handler := newTestHandler(t, &analyzerFake{}, reader, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestReportDownloads(t *testing.T) {
	handler := newTestHandler(t, &analyzerFake{}, &readerFake{}, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/a-1/report", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="deepfake-analysis-1.txt"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if res.Body.String() != "report for a-1" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/a-1/report.xlsx", nil))
	if res.Code != http.StatusOK || res.Header().Get("Content-Type") != "application/xlsx" {
		t.Fatalf("unexpected workbook response %d %q", res.Code, res.Header().Get("Content-Type"))
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/a-1/other", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sub-resource, got %d", res.Code)
	}
}

func TestReportOnPendingAnalysisIs400(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrInvalidInput, "render report", errors.New("analysis a-1 is queued"))}
	handler := newTestHandler(t, &analyzerFake{}, reader, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses/a-1/report", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestListAnalysesBindsLimit(t *testing.T) {
	reader := &readerFake{}
	handler := newTestHandler(t, &analyzerFake{}, reader, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=7", nil))
	if res.Code != http.StatusOK || reader.listLimit != 7 {
		t.Fatalf("expected limit 7, got %d (status %d)", reader.listLimit, res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/analyses?limit=many", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric limit, got %d", res.Code)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	handler := newTestHandler(t, &analyzerFake{}, &readerFake{}, Options{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode openapi: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/v1/analyses/{id}/report.xlsx"]; !ok {
		t.Fatalf("expected workbook path in document")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &analyzerFake{}, &readerFake{}, Options{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/analyses/a-1", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestMapErrorToHTTPStatusTooLarge(t *testing.T) {
	err := fmt.Errorf("read body: %w", &http.MaxBytesError{Limit: 10})
	if got := mapErrorToHTTPStatus(err); got != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", got)
	}
}
