package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

func TestExportWritesSummaryAndMetrics(t *testing.T) {
	result := scoring.NewGenerator(nil).Generate(context.Background(), scoring.Request{Kind: domain.MediaVideo, FileName: "clip.mp4"})
	at := time.UnixMilli(1760000000000)

	file, err := NewExporter().Export(result, at)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if file.Name != "deepfake-analysis-1760000000000.xlsx" || file.ContentType != ContentType {
		t.Fatalf("unexpected file meta %+v", file.Name)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(file.Body))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer wb.Close()

	if got, _ := wb.GetCellValue(summarySheet, "B3"); got != "VIDEO" {
		t.Fatalf("expected media type VIDEO, got %q", got)
	}
	if got, _ := wb.GetCellValue(summarySheet, "B5"); got != result.OverallResult {
		t.Fatalf("expected verdict %q, got %q", result.OverallResult, got)
	}

	for i, field := range result.SpecificMetrics.Fields() {
		row := i + 2
		label, _ := wb.GetCellValue(metricsSheet, fmt.Sprintf("A%d", row))
		value, _ := wb.GetCellValue(metricsSheet, fmt.Sprintf("B%d", row))
		if label != field.Label || value != fmt.Sprint(domain.RoundHalfUp(field.Value)) {
			t.Fatalf("row %d: got %q=%q, want %q=%d", row, label, value, field.Label, domain.RoundHalfUp(field.Value))
		}
	}
}
