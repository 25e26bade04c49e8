package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kirillkom/deepfake-scan/internal/config"
	"github.com/kirillkom/deepfake-scan/internal/core/ports"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
	"github.com/kirillkom/deepfake-scan/internal/core/usecase"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/classifier"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/llm/openai"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/media"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/queue/nats"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/resilience"
	"github.com/kirillkom/deepfake-scan/internal/infrastructure/storage/localfs"
)

// Telemetry is implemented by the per-process Prometheus collectors.
type Telemetry interface {
	resilience.Observer
	classifier.Recorder
	ports.AnalysisObserver
}

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Generator *scoring.Generator
	AnalyzeUC ports.MediaAnalyzer
	ProcessUC ports.AnalysisProcessor
	QueryUC   ports.AnalysisReader

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, telemetry Telemetry, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewAnalysisRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queueExec := resilience.NewExecutor(resilience.DefaultConfig())
	if telemetry != nil {
		queueExec.WithObserver(telemetry)
	}
	queue, err := nats.New(cfg.NATSURL, nats.Subjects{
		Requested: cfg.NATSRequestedSubject,
		Completed: cfg.NATSCompletedSubject,
	}, nats.Options{
		ResilienceExecutor: queueExec,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	generator := NewGenerator(cfg, telemetry, logger)

	var exporter ports.ReportExporter
	if cfg.WorkbookExport {
		exporter = xlsx.NewExporter()
	}

	var observer ports.AnalysisObserver
	analyzeOpts := []usecase.AnalyzeOption{usecase.WithMaxUploadBytes(cfg.MaxUploadBytes)}
	if telemetry != nil {
		observer = telemetry
		analyzeOpts = append(analyzeOpts, usecase.WithObserver(telemetry))
	}

	analyzeUC := usecase.NewAnalyzeMediaUseCase(repo, storage, queue, generator, media.NewInspector(), analyzeOpts...)
	processUC := usecase.NewProcessAnalysisUseCase(repo, storage, queue, generator, observer)
	queryUC := usecase.NewAnalysisQueryUseCase(repo, exporter)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Generator: generator,
		AnalyzeUC: analyzeUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// NewGenerator builds the scoring generator with the configured classifier
// backend. It needs no database or broker and is shared by the CLI and MCP
// entrypoints.
func NewGenerator(cfg config.Config, telemetry Telemetry, logger *slog.Logger) *scoring.Generator {
	if logger == nil {
		logger = slog.Default()
	}

	exec := resilience.NewExecutor(resilience.InferenceConfig())
	opts := classifier.Options{
		Backend:  cfg.ClassifierBackend,
		Fallback: classifier.ParseFallbackPolicy(cfg.ClassifierFallbackPolicy),
		CacheTTL: cfg.ClassifierCacheTTL,
		Timeout:  cfg.ClassifierTimeout,
		Logger:   logger,
	}
	if telemetry != nil {
		exec.WithObserver(telemetry)
		opts.Recorder = telemetry
	}

	adapter := classifier.New(classifierFactory(cfg, exec), opts)
	return scoring.NewGenerator(adapter, scoring.WithLogger(logger))
}

func classifierFactory(cfg config.Config, exec *resilience.Executor) classifier.Factory {
	switch cfg.ClassifierBackend {
	case "ollama":
		return func(context.Context) (ports.ImageLabeler, error) {
			return ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel,
				ollama.WithExecutor(exec),
				ollama.WithHTTPClient(&http.Client{Timeout: cfg.ClassifierTimeout}),
			), nil
		}
	case "openai":
		return func(context.Context) (ports.ImageLabeler, error) {
			labeler, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIVisionModel, exec)
			if err != nil {
				return nil, err
			}
			return labeler, nil
		}
	default:
		return nil
	}
}
