package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kirillkom/deepfake-scan/internal/adapters/cli"
	"github.com/kirillkom/deepfake-scan/internal/bootstrap"
	"github.com/kirillkom/deepfake-scan/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	root := cli.NewRootCommand(cli.Deps{
		NewGenerator: func(backend string, logger *slog.Logger) cli.Generator {
			local := cfg
			if backend != "" {
				local.ClassifierBackend = backend
			}
			return bootstrap.NewGenerator(local, nil, logger)
		},
		LogLevel: cfg.LogLevel,
		MaxBytes: cfg.MaxUploadBytes,
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
