package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/deepfake-scan/internal/adapters/mcp"
	"github.com/kirillkom/deepfake-scan/internal/bootstrap"
	"github.com/kirillkom/deepfake-scan/internal/config"
	"github.com/kirillkom/deepfake-scan/internal/observability/logging"
	"github.com/kirillkom/deepfake-scan/internal/version"
)

const serviceName = "mcp"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "service", serviceName, "error", err)
		os.Exit(1)
	}
	// stdout carries the protocol stream.
	logger := logging.New(os.Stderr, serviceName, cfg.LogLevel, "json")
	slog.SetDefault(logger)

	generator := bootstrap.NewGenerator(cfg, nil, logger)
	srv := mcpadapter.New(generator, cfg.MaxUploadBytes)

	logger.Info("mcp_stdio_started", "classifier_backend", cfg.ClassifierBackend)
	if err := srv.ServeStdio(version.Version); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
