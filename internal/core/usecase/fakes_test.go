package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
)

type statusCall struct {
	status domain.AnalysisStatus
	errMsg string
}

type repoFake struct {
	mu          sync.Mutex
	items       map[string]*domain.Analysis
	order       []string
	createErr   error
	saveErr     error
	statusCalls []statusCall
	listLimit   int
}

func newRepoFake() *repoFake {
	return &repoFake{items: map[string]*domain.Analysis{}}
}

func (f *repoFake) Create(_ context.Context, a *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *a
	f.items[a.ID] = &copied
	f.order = append(f.order, a.ID)
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
	}
	copied := *a
	return &copied, nil
}

func (f *repoFake) List(_ context.Context, limit int) ([]domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listLimit = limit
	out := make([]domain.Analysis, 0, len(f.order))
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.items[f.order[i]])
	}
	return out, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.AnalysisStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	a, ok := f.items[id]
	if !ok {
		return domain.WrapError(domain.ErrAnalysisNotFound, "update analysis status", fmt.Errorf("id=%s", id))
	}
	a.Status = status
	a.Error = errMessage
	return nil
}

func (f *repoFake) SaveResult(_ context.Context, id string, result domain.AnalysisResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	a, ok := f.items[id]
	if !ok {
		return domain.WrapError(domain.ErrAnalysisNotFound, "save analysis result", fmt.Errorf("id=%s", id))
	}
	a.Result = &result
	a.Status = domain.StatusCompleted
	return nil
}

type storageFake struct {
	files map[string][]byte
}

func newStorageFake() *storageFake {
	return &storageFake{files: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	requested  []string
	completed  []*domain.Analysis
	publishErr error
}

func (f *queueFake) PublishAnalysisRequested(_ context.Context, id string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.requested = append(f.requested, id)
	return nil
}

func (f *queueFake) PublishAnalysisCompleted(_ context.Context, a *domain.Analysis) error {
	f.completed = append(f.completed, a)
	return nil
}

func (f *queueFake) SubscribeAnalysisRequested(context.Context, func(context.Context, domain.AnalysisEvent) error) error {
	return nil
}

type inspectorFake struct {
	calls int
}

func (f *inspectorFake) Inspect(data []byte, _ string) domain.MediaInfo {
	f.calls++
	return domain.MediaInfo{SizeBytes: int64(len(data)), SHA256: "digest"}
}

type observerFake struct {
	modes []string
}

func (f *observerFake) ObserveAnalysis(mode string, _ domain.AnalysisResult) {
	f.modes = append(f.modes, mode)
}

type classifierFake struct {
	out   domain.ClassifierOutput
	calls int
}

func (f *classifierFake) Classify(context.Context, ports.MediaSample) domain.ClassifierOutput {
	f.calls++
	return f.out
}

type exporterFake struct {
	err error
}

func (f *exporterFake) Export(result domain.AnalysisResult, at time.Time) (domain.ReportFile, error) {
	if f.err != nil {
		return domain.ReportFile{}, f.err
	}
	return domain.ReportFile{Name: "book.xlsx", ContentType: "application/xlsx", Body: []byte(result.FileName)}, nil
}

var fixedNow = func() time.Time { return time.UnixMilli(1760860800000).UTC() }
