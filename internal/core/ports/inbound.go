package ports

import (
	"context"
	"io"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

// UploadRequest describes a user-submitted file.
type UploadRequest struct {
	Kind           domain.MediaKind
	FileName       string
	MimeType       string
	ForceAuthentic bool
	Body           io.Reader
}

// CaptureRequest describes a still image taken from a live camera.
type CaptureRequest struct {
	MimeType string
	Body     io.Reader
}

// MediaAnalyzer is the inbound contract for running analyses.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, req UploadRequest) (*domain.Analysis, error)
	Submit(ctx context.Context, req UploadRequest) (*domain.Analysis, error)
	Capture(ctx context.Context, req CaptureRequest) (*domain.Analysis, error)
}

// AnalysisReader is the inbound read model for analyses and their reports.
type AnalysisReader interface {
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	List(ctx context.Context, limit int) ([]domain.Analysis, error)
	Report(ctx context.Context, id string) (domain.ReportFile, error)
	Workbook(ctx context.Context, id string) (domain.ReportFile, error)
}

// AnalysisProcessor is the inbound contract for asynchronous processing.
type AnalysisProcessor interface {
	ProcessByID(ctx context.Context, analysisID string) error
}
