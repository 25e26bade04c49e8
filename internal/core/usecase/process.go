package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

type ProcessAnalysisUseCase struct {
	repo      ports.AnalysisRepository
	storage   ports.ObjectStorage
	queue     ports.MessageQueue
	generator *scoring.Generator
	observer  ports.AnalysisObserver
}

func NewProcessAnalysisUseCase(
	repo ports.AnalysisRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	generator *scoring.Generator,
	observer ports.AnalysisObserver,
) *ProcessAnalysisUseCase {
	return &ProcessAnalysisUseCase{
		repo:      repo,
		storage:   storage,
		queue:     queue,
		generator: generator,
		observer:  observer,
	}
}

func (uc *ProcessAnalysisUseCase) ProcessByID(ctx context.Context, analysisID string) error {
	if err := uc.markStatus(ctx, analysisID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	analysis, result, err := uc.processPipeline(ctx, analysisID)
	if err != nil {
		if failErr := uc.markFailed(ctx, analysisID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, analysisID, result); err != nil {
		err = fmt.Errorf("save analysis result: %w", err)
		if failErr := uc.markFailed(ctx, analysisID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	analysis.Result = &result
	analysis.Status = domain.StatusCompleted
	if uc.observer != nil {
		uc.observer.ObserveAnalysis(ModeAsync, result)
	}
	if uc.queue != nil {
		if err := uc.queue.PublishAnalysisCompleted(ctx, analysis); err != nil {
			return fmt.Errorf("publish analysis completion: %w", err)
		}
	}
	return nil
}

func (uc *ProcessAnalysisUseCase) processPipeline(ctx context.Context, analysisID string) (*domain.Analysis, domain.AnalysisResult, error) {
	analysis, err := uc.repo.GetByID(ctx, analysisID)
	if err != nil {
		return nil, domain.AnalysisResult{}, fmt.Errorf("fetch analysis by id: %w", err)
	}

	data, err := uc.load(ctx, analysis)
	if err != nil {
		return nil, domain.AnalysisResult{}, err
	}

	return analysis, evaluate(ctx, uc.generator, analysis, data), nil
}

func (uc *ProcessAnalysisUseCase) load(ctx context.Context, analysis *domain.Analysis) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, analysis.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open stored media: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored media: %w", err)
	}
	return data, nil
}

func (uc *ProcessAnalysisUseCase) markStatus(ctx context.Context, analysisID string, status domain.AnalysisStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, analysisID, status, errMessage)
}

func (uc *ProcessAnalysisUseCase) markFailed(ctx context.Context, analysisID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, analysisID, domain.StatusFailed, processErr.Error())
}
