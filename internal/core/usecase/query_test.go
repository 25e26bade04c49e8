package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
	"github.com/kirillkom/deepfake-scan/internal/core/scoring"
)

func seedCompleted(t *testing.T, repo *repoFake, id string, status domain.AnalysisStatus) {
	t.Helper()
	a := domain.Analysis{ID: id, FileName: id + ".jpg", MediaKind: domain.MediaImage, Status: status}
	if status == domain.StatusCompleted {
		res := scoring.NewGenerator(nil).Generate(context.Background(), scoring.Request{Kind: domain.MediaImage, FileName: a.FileName})
		a.Result = &res
	}
	if err := repo.Create(context.Background(), &a); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestReportRendersCompletedAnalysis(t *testing.T) {
	repo := newRepoFake()
	seedCompleted(t, repo, "done", domain.StatusCompleted)
	uc := NewAnalysisQueryUseCase(repo, &exporterFake{})
	uc.now = fixedNow

	file, err := uc.Report(context.Background(), "done")
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if file.Name != "deepfake-analysis-1760860800000.txt" {
		t.Fatalf("unexpected file name %q", file.Name)
	}
	if !strings.Contains(string(file.Body), "File: done.jpg") {
		t.Fatalf("unexpected report body:\n%s", file.Body)
	}

	book, err := uc.Workbook(context.Background(), "done")
	if err != nil || book.Name != "book.xlsx" {
		t.Fatalf("Workbook() = %+v, %v", book, err)
	}
}

func TestReportRejectsPendingAnalysis(t *testing.T) {
	repo := newRepoFake()
	seedCompleted(t, repo, "pending", domain.StatusQueued)
	uc := NewAnalysisQueryUseCase(repo, &exporterFake{})

	if _, err := uc.Report(context.Background(), "pending"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := uc.Report(context.Background(), "missing"); !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWorkbookDisabledWithoutExporter(t *testing.T) {
	repo := newRepoFake()
	seedCompleted(t, repo, "done", domain.StatusCompleted)
	uc := NewAnalysisQueryUseCase(repo, nil)

	if _, err := uc.Workbook(context.Background(), "done"); !domain.IsKind(err, domain.ErrUnsupportedMedia) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestListAppliesDefaultLimit(t *testing.T) {
	repo := newRepoFake()
	for _, id := range []string{"a", "b", "c"} {
		seedCompleted(t, repo, id, domain.StatusCompleted)
	}
	uc := NewAnalysisQueryUseCase(repo, nil)

	items, err := uc.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if repo.listLimit != defaultListLimit || len(items) != 3 || items[0].ID != "c" {
		t.Fatalf("unexpected list result limit=%d items=%v", repo.listLimit, items)
	}
}
