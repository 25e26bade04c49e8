// Package cli implements the deepscan command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
	"github.com/kirillkom/deepfake-scan/internal/observability/logging"
	"github.com/kirillkom/deepfake-scan/internal/version"
)

// Generator is satisfied by *scoring.Generator.
type Generator interface {
	Generate(ctx context.Context, req scoring.Request) domain.AnalysisResult
}

type Deps struct {
	// NewGenerator builds a generator for the given classifier backend; an
	// empty backend means the configured default.
	NewGenerator func(backend string, logger *slog.Logger) Generator
	LogLevel     string
	MaxBytes     int64
	Now          func() time.Time
}

var versionColor = color.New(color.FgCyan, color.Bold)

func NewRootCommand(deps Deps) *cobra.Command {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxBytes <= 0 {
		deps.MaxBytes = 50 << 20
	}

	var verbose bool
	root := &cobra.Command{
		Use:   "deepscan",
		Short: "Deepfake detection scores for images, video and audio",
		Long: `deepscan produces a deterministic deepfake detection analysis for a media file.

Scores are seeded by the file name and content, optionally nudged by an image
classifier. Results are indicative and not forensic evidence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	logger := func(cmd *cobra.Command) *slog.Logger {
		level := deps.LogLevel
		if verbose {
			level = "debug"
		}
		return logging.New(cmd.ErrOrStderr(), "cli", level, "text")
	}

	root.AddCommand(newAnalyzeCommand(deps, logger))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deepscan %s\n", versionColor.Sprint(version.String()))
		},
	})
	return root
}
