package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

// AnalysisRepository persists and reads analysis state.
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *domain.Analysis) error
	GetByID(ctx context.Context, id string) (*domain.Analysis, error)
	List(ctx context.Context, limit int) ([]domain.Analysis, error)
	UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.AnalysisResult) error
}

// ObjectStorage stores uploaded media.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes analysis events.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, analysisID string) error
	PublishAnalysisCompleted(ctx context.Context, analysis *domain.Analysis) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisEvent) error) error
}

// MediaSample is the payload handed to the classifier adapter.
type MediaSample struct {
	FileName string
	MimeType string
	Data     []byte
}

// MediaClassifier turns media into a soft scoring signal. Implementations absorb
// their own failures and never return an error.
type MediaClassifier interface {
	Classify(ctx context.Context, sample MediaSample) domain.ClassifierOutput
}

// ImageLabeler is a single-label image classification backend.
type ImageLabeler interface {
	Warmup(ctx context.Context) error
	Label(ctx context.Context, image []byte, mimeType string) (domain.Label, error)
}

// MediaInspector fingerprints uploaded media.
type MediaInspector interface {
	Inspect(data []byte, mimeType string) domain.MediaInfo
}

// AnalysisObserver receives completed analyses for metrics.
type AnalysisObserver interface {
	ObserveAnalysis(mode string, result domain.AnalysisResult)
}

// ReportExporter renders a result into a downloadable binary report.
type ReportExporter interface {
	Export(result domain.AnalysisResult, generatedAt time.Time) (domain.ReportFile, error)
}
