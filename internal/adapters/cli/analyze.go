package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/report"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

var (
	deepfakeColor  = color.New(color.FgRed, color.Bold)
	authenticColor = color.New(color.FgGreen, color.Bold)
	labelColor     = color.New(color.Faint)
)

type analyzeFlags struct {
	kind           string
	forceAuthentic bool
	reportPath     string
	jsonOut        bool
	classifier     string
}

func newAnalyzeCommand(deps Deps, logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a media file",
		Long: `Analyze scores a local media file and prints the verdict with its metrics.

Example:
  deepscan analyze interview.mp4
  deepscan analyze photo.jpg --report ./reports/
  deepscan analyze voice.bin --kind audio --json
  deepscan analyze selfie.png --classifier none`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, deps, logger(cmd), flags, args[0])
		},
	}
	cmd.Flags().StringVar(&flags.kind, "kind", "", "media kind: image, video or audio (inferred when empty)")
	cmd.Flags().BoolVar(&flags.forceAuthentic, "force-authentic", false, "treat the file as a verified live capture")
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "write the text report to this file or directory, '-' for stdout")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "print the analysis result as JSON")
	cmd.Flags().StringVar(&flags.classifier, "classifier", "", "classifier backend override: ollama, openai or none")
	return cmd
}

func runAnalyze(cmd *cobra.Command, deps Deps, logger *slog.Logger, flags analyzeFlags, path string) error {
	data, err := readMedia(path, deps.MaxBytes)
	if err != nil {
		return err
	}

	var kind domain.MediaKind
	if flags.kind != "" {
		kind, err = domain.ParseMediaKind(flags.kind)
	} else {
		kind, err = inferKind(path, data)
	}
	if err != nil {
		return err
	}

	backend := strings.ToLower(strings.TrimSpace(flags.classifier))
	logger.Debug("analyze_started", "file", path, "kind", kind, "bytes", len(data), "classifier", backend)

	gen := deps.NewGenerator(backend, logger)
	result := gen.Generate(cmd.Context(), scoring.Request{
		Kind:           kind,
		FileName:       filepath.Base(path),
		MimeType:       http.DetectContentType(data),
		Data:           data,
		ForceAuthentic: flags.forceAuthentic,
	})

	out := cmd.OutOrStdout()
	if flags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	} else if flags.reportPath != "-" {
		printSummary(out, result)
	}

	if flags.reportPath != "" {
		return writeReport(out, flags.reportPath, report.TextFile(result, deps.Now()))
	}
	return nil
}

func readMedia(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, maxBytes)
	}
	return data, nil
}

func inferKind(path string, data []byte) (domain.MediaKind, error) {
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	top, _, _ := strings.Cut(mimeType, "/")
	if strings.HasPrefix(mimeType, "application/ogg") {
		top = "audio"
	}
	kind, err := domain.ParseMediaKind(top)
	if err != nil {
		return "", fmt.Errorf("cannot infer media kind of %s (%s), pass --kind", path, mimeType)
	}
	return kind, nil
}

func printSummary(w io.Writer, result domain.AnalysisResult) {
	verdict := authenticColor
	if result.IsDeepfake {
		verdict = deepfakeColor
	}
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelColor.Sprintf("%-26s", label+":"), value)
	}
	percent := func(v float64) string {
		return fmt.Sprintf("%d%%", domain.RoundHalfUp(v))
	}

	row("File", result.FileName)
	row("Media Type", strings.ToUpper(string(result.MediaKind)))
	row("Verdict", verdict.Sprint(result.OverallResult))
	row("Authenticity Score", percent(result.BaseMetrics.Authenticity))
	row("Manipulation Probability", percent(result.BaseMetrics.ManipulationProbability))
	row("Confidence", percent(result.BaseMetrics.Confidence)+" ("+result.ConfidenceInterval+")")
	if result.SpecificMetrics != nil {
		for _, field := range result.SpecificMetrics.Fields() {
			row(field.Label, percent(field.Value))
		}
	}
}

func writeReport(stdout io.Writer, path string, file domain.ReportFile) error {
	if path == "-" {
		_, err := stdout.Write(file.Body)
		return err
	}
	if info, err := os.Stat(path); (err == nil && info.IsDir()) || strings.HasSuffix(path, string(os.PathSeparator)) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
		path = filepath.Join(path, file.Name)
	}
	if err := os.WriteFile(path, file.Body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(stdout, "report written to %s\n", path)
	return nil
}
