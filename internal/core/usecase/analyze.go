package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

const (
	DefaultMaxUploadBytes = 50 << 20
	defaultFileName       = "media.bin"

	ModeSync    = "sync"
	ModeAsync   = "async"
	ModeCapture = "capture"
)

type AnalyzeMediaUseCase struct {
	repo      ports.AnalysisRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	generator *scoring.Generator
	inspector ports.MediaInspector
	observer  ports.AnalysisObserver
	maxBytes  int64
	now       func() time.Time
}

type AnalyzeOption func(*AnalyzeMediaUseCase)

func WithObserver(observer ports.AnalysisObserver) AnalyzeOption {
	return func(uc *AnalyzeMediaUseCase) { uc.observer = observer }
}

func WithMaxUploadBytes(n int64) AnalyzeOption {
	return func(uc *AnalyzeMediaUseCase) {
		if n > 0 {
			uc.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) AnalyzeOption {
	return func(uc *AnalyzeMediaUseCase) { uc.now = now }
}

func NewAnalyzeMediaUseCase(
	repo ports.AnalysisRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	generator *scoring.Generator,
	inspector ports.MediaInspector,
	opts ...AnalyzeOption,
) *AnalyzeMediaUseCase {
	uc := &AnalyzeMediaUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		generator: generator,
		inspector: inspector,
		maxBytes:  DefaultMaxUploadBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Analyze stores the upload and scores it before returning.
func (uc *AnalyzeMediaUseCase) Analyze(ctx context.Context, req ports.UploadRequest) (*domain.Analysis, error) {
	analysis, data, err := uc.intake(ctx, req, domain.SourceUpload, domain.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if err := uc.complete(ctx, analysis, data, ModeSync); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Submit stores the upload and queues it for the worker.
func (uc *AnalyzeMediaUseCase) Submit(ctx context.Context, req ports.UploadRequest) (*domain.Analysis, error) {
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "submit analysis", errors.New("queue is not configured"))
	}
	analysis, _, err := uc.intake(ctx, req, domain.SourceUpload, domain.StatusQueued)
	if err != nil {
		return nil, err
	}
	if err := uc.queue.PublishAnalysisRequested(ctx, analysis.ID); err != nil {
		return nil, fmt.Errorf("publish analysis request: %w", err)
	}
	return analysis, nil
}

// Capture scores a still frame from a live camera. Captures are always
// reported authentic.
func (uc *AnalyzeMediaUseCase) Capture(ctx context.Context, req ports.CaptureRequest) (*domain.Analysis, error) {
	body := req.Body
	mimeType := normalizeMIME(req.MimeType)
	switch mimeType {
	case "":
		mimeType = "image/jpeg"
	case "application/octet-stream":
		data, err := uc.readBody(req.Body)
		if err != nil {
			return nil, err
		}
		mimeType = sniffMIME(domain.MediaImage, data)
		body = bytes.NewReader(data)
	}
	ext, ok := captureExt[mimeType]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedMedia, "capture", fmt.Errorf("%s is not a capture format", mimeType))
	}

	upload := ports.UploadRequest{
		Kind:           domain.MediaImage,
		FileName:       fmt.Sprintf("webcam-capture-%d.%s", uc.now().UnixMilli(), ext),
		MimeType:       mimeType,
		ForceAuthentic: true,
		Body:           body,
	}
	analysis, data, err := uc.intake(ctx, upload, domain.SourceCapture, domain.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if err := uc.complete(ctx, analysis, data, ModeCapture); err != nil {
		return nil, err
	}
	return analysis, nil
}

func (uc *AnalyzeMediaUseCase) intake(
	ctx context.Context,
	req ports.UploadRequest,
	source domain.AnalysisSource,
	status domain.AnalysisStatus,
) (*domain.Analysis, []byte, error) {
	data, err := uc.readBody(req.Body)
	if err != nil {
		return nil, nil, err
	}

	mimeType := normalizeMIME(req.MimeType)
	if untypedMIME(mimeType) {
		mimeType = sniffMIME(req.Kind, data)
	}
	kind, err := resolveKind(req.Kind, mimeType)
	if err != nil {
		return nil, nil, err
	}

	id := uuid.NewString()
	now := uc.now().UTC()
	storageKey := fmt.Sprintf("%s/%s_%s", now.Format("2006/01/02"), id, sanitizeFilename(req.FileName))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(data)); err != nil {
		return nil, nil, fmt.Errorf("save to object storage: %w", err)
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = defaultFileName
	}
	analysis := &domain.Analysis{
		ID:             id,
		FileName:       fileName,
		MimeType:       mimeType,
		MediaKind:      kind,
		StoragePath:    storageKey,
		Source:         source,
		ForceAuthentic: req.ForceAuthentic,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if uc.inspector != nil {
		analysis.Media = uc.inspector.Inspect(data, mimeType)
	}

	if err := uc.repo.Create(ctx, analysis); err != nil {
		return nil, nil, fmt.Errorf("create analysis metadata: %w", err)
	}
	return analysis, data, nil
}

func (uc *AnalyzeMediaUseCase) complete(ctx context.Context, analysis *domain.Analysis, data []byte, mode string) error {
	result := evaluate(ctx, uc.generator, analysis, data)
	if err := uc.repo.SaveResult(ctx, analysis.ID, result); err != nil {
		err = fmt.Errorf("save analysis result: %w", err)
		if failErr := uc.repo.UpdateStatus(ctx, analysis.ID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	analysis.Result = &result
	analysis.Status = domain.StatusCompleted
	analysis.UpdatedAt = uc.now().UTC()
	if uc.observer != nil {
		uc.observer.ObserveAnalysis(mode, result)
	}
	// The caller already has the result; a lost completion event is only logged.
	if uc.queue != nil {
		if err := uc.queue.PublishAnalysisCompleted(ctx, analysis); err != nil {
			slog.Warn("analysis_completion_publish_failed", "analysis_id", analysis.ID, "error", err)
		}
	}
	return nil
}

func (uc *AnalyzeMediaUseCase) readBody(body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("missing body"))
	}
	data, err := io.ReadAll(io.LimitReader(body, uc.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("empty file"))
	}
	if int64(len(data)) > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("file exceeds %d bytes", uc.maxBytes))
	}
	return data, nil
}

// evaluate scores stored media. Captures get the fixed authentic override.
func evaluate(ctx context.Context, gen *scoring.Generator, analysis *domain.Analysis, data []byte) domain.AnalysisResult {
	result := gen.Generate(ctx, scoring.Request{
		Kind:           analysis.MediaKind,
		FileName:       analysis.FileName,
		MimeType:       analysis.MimeType,
		Data:           data,
		ForceAuthentic: analysis.ForceAuthentic,
	})
	if analysis.Source == domain.SourceCapture {
		scoring.ApplyCaptureOverride(&result)
	}
	return result
}
