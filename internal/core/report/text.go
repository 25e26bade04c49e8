package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

const (
	TextContentType = "text/plain; charset=utf-8"

	Disclaimer = "This report is generated automatically and is provided for informational purposes only. " +
		"Scores are indicative and must not be used as the sole basis for legal, journalistic or security decisions."
)

// FileName returns the download name for a report generated at t.
func FileName(t time.Time, ext string) string {
	return fmt.Sprintf("deepfake-analysis-%d.%s", t.UnixMilli(), ext)
}

// Render produces the fixed-layout plain-text report.
func Render(result domain.AnalysisResult, generatedAt time.Time) string {
	var b strings.Builder

	section := func(title string) {
		b.WriteString("\n")
		b.WriteString(title)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("-", len(title)))
		b.WriteString("\n")
	}
	line := func(label string, value any) {
		fmt.Fprintf(&b, "%s: %v\n", label, value)
	}
	percent := func(v float64) string {
		return fmt.Sprintf("%d%%", domain.RoundHalfUp(v))
	}

	const title = "DEEPFAKE DETECTION ANALYSIS REPORT"
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
	line("Generated", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	line("File", result.FileName)
	line("Media Type", strings.ToUpper(string(result.MediaKind)))
	line("Analysis Version", result.AnalysisVersion)

	section("OVERALL RESULT")
	line("Verdict", result.OverallResult)
	line("Authenticity Score", percent(result.BaseMetrics.Authenticity))
	line("Manipulation Probability", percent(result.BaseMetrics.ManipulationProbability))
	line("Confidence Level", percent(result.BaseMetrics.Confidence))
	line("Confidence Interval", result.ConfidenceInterval)

	section("DETAILED METRICS")
	if result.SpecificMetrics != nil {
		for _, field := range result.SpecificMetrics.Fields() {
			line(field.Label, percent(field.Value))
		}
	}

	section("ANALYSIS EXPLANATION")
	b.WriteString(result.Explanation + "\n")

	section("DATASET REFERENCE")
	b.WriteString(result.DatasetReference + "\n")

	section("DISCLAIMER")
	b.WriteString(Disclaimer + "\n")

	return b.String()
}

// TextFile wraps Render as a downloadable file.
func TextFile(result domain.AnalysisResult, generatedAt time.Time) domain.ReportFile {
	return domain.ReportFile{
		Name:        FileName(generatedAt, "txt"),
		ContentType: TextContentType,
		Body:        []byte(Render(result, generatedAt)),
	}
}
