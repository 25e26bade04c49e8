// Package xlsx renders an analysis result as a two-sheet spreadsheet.
package xlsx

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/report"
)

const (
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	summarySheet = "Summary"
	metricsSheet = "Metrics"
)

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(result domain.AnalysisResult, generatedAt time.Time) (domain.ReportFile, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return domain.ReportFile{}, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(metricsSheet); err != nil {
		return domain.ReportFile{}, fmt.Errorf("create metrics sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return domain.ReportFile{}, fmt.Errorf("create style: %w", err)
	}

	summary := [][2]any{
		{"Generated", generatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"File", result.FileName},
		{"Media Type", strings.ToUpper(string(result.MediaKind))},
		{"Analysis Version", result.AnalysisVersion},
		{"Verdict", result.OverallResult},
		{"Authenticity Score", domain.RoundHalfUp(result.BaseMetrics.Authenticity)},
		{"Manipulation Probability", domain.RoundHalfUp(result.BaseMetrics.ManipulationProbability)},
		{"Confidence Level", domain.RoundHalfUp(result.BaseMetrics.Confidence)},
		{"Confidence Interval", result.ConfidenceInterval},
		{"Explanation", result.Explanation},
		{"Dataset Reference", result.DatasetReference},
		{"Disclaimer", report.Disclaimer},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return domain.ReportFile{}, err
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(summary)), bold); err != nil {
		return domain.ReportFile{}, fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return domain.ReportFile{}, fmt.Errorf("size summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 80); err != nil {
		return domain.ReportFile{}, fmt.Errorf("size summary: %w", err)
	}

	metrics := [][2]any{{"Metric", "Score (%)"}}
	if result.SpecificMetrics != nil {
		for _, field := range result.SpecificMetrics.Fields() {
			metrics = append(metrics, [2]any{field.Label, domain.RoundHalfUp(field.Value)})
		}
	}
	if err := writeRows(f, metricsSheet, metrics); err != nil {
		return domain.ReportFile{}, err
	}
	if err := f.SetCellStyle(metricsSheet, "A1", "B1", bold); err != nil {
		return domain.ReportFile{}, fmt.Errorf("style metrics: %w", err)
	}
	if err := f.SetColWidth(metricsSheet, "A", "A", 28); err != nil {
		return domain.ReportFile{}, fmt.Errorf("size metrics: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return domain.ReportFile{}, fmt.Errorf("write workbook: %w", err)
	}
	return domain.ReportFile{
		Name:        report.FileName(generatedAt, "xlsx"),
		ContentType: ContentType,
		Body:        buf.Bytes(),
	}, nil
}

func writeRows(f *excelize.File, sheet string, rows [][2]any) error {
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
