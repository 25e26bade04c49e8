package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
	"github.com/kirillkom/deepfake-scan/internal/core/report"
)

const defaultListLimit = 20

type AnalysisQueryUseCase struct {
	repo     ports.AnalysisRepository
	exporter ports.ReportExporter
	now      func() time.Time
}

func NewAnalysisQueryUseCase(repo ports.AnalysisRepository, exporter ports.ReportExporter) *AnalysisQueryUseCase {
	return &AnalysisQueryUseCase{
		repo:     repo,
		exporter: exporter,
		now:      time.Now,
	}
}

func (uc *AnalysisQueryUseCase) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	analysis, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return analysis, nil
}

func (uc *AnalysisQueryUseCase) List(ctx context.Context, limit int) ([]domain.Analysis, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	items, err := uc.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return items, nil
}

func (uc *AnalysisQueryUseCase) Report(ctx context.Context, id string) (domain.ReportFile, error) {
	result, err := uc.completedResult(ctx, id)
	if err != nil {
		return domain.ReportFile{}, err
	}
	return report.TextFile(result, uc.now()), nil
}

func (uc *AnalysisQueryUseCase) Workbook(ctx context.Context, id string) (domain.ReportFile, error) {
	if uc.exporter == nil {
		return domain.ReportFile{}, domain.WrapError(domain.ErrUnsupportedMedia, "export workbook", errors.New("workbook export is disabled"))
	}
	result, err := uc.completedResult(ctx, id)
	if err != nil {
		return domain.ReportFile{}, err
	}
	file, err := uc.exporter.Export(result, uc.now())
	if err != nil {
		return domain.ReportFile{}, fmt.Errorf("export workbook: %w", err)
	}
	return file, nil
}

func (uc *AnalysisQueryUseCase) completedResult(ctx context.Context, id string) (domain.AnalysisResult, error) {
	analysis, err := uc.GetByID(ctx, id)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if analysis.Status != domain.StatusCompleted || analysis.Result == nil {
		return domain.AnalysisResult{}, domain.WrapError(
			domain.ErrInvalidInput,
			"render report",
			fmt.Errorf("analysis %s is %s", id, analysis.Status),
		)
	}
	return *analysis.Result, nil
}
