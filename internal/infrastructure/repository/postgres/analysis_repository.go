package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/deepfake-scan/internal/core/domain"
)

const (
	schemaLockKey    = int64(2026101901)
	defaultListLimit = 50
	maxListLimit     = 500
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	media_kind TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	source TEXT NOT NULL,
	force_authentic BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	media JSONB NOT NULL DEFAULT '{}'::jsonb,
	result JSONB,
	is_deepfake BOOLEAN,
	authenticity DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_sha256 ON analyses((media->>'sha256'));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) error {
	mediaJSON, err := json.Marshal(a.Media)
	if err != nil {
		return fmt.Errorf("marshal media info: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analyses (
	id, file_name, mime_type, media_kind, storage_path, source, force_authentic, status, error_message, media, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		a.ID, a.FileName, a.MimeType, string(a.MediaKind), a.StoragePath, string(a.Source), a.ForceAuthentic,
		string(a.Status), a.Error, mediaJSON, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

const selectAnalysis = `
SELECT id, file_name, mime_type, media_kind, storage_path, source, force_authentic, status, error_message, media, result, created_at, updated_at
FROM analyses
`

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.Analysis, error) {
	row := r.db.QueryRowContext(ctx, selectAnalysis+"WHERE id = $1", id)

	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get analysis", fmt.Errorf("id=%s", id))
		}
		return nil, err
	}
	return &a, nil
}

func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]domain.Analysis, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectAnalysis+"ORDER BY created_at DESC\nLIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update analysis status: %w", err)
	}
	return requireAffected(result, "update analysis status", id)
}

// SaveResult stores the result and marks the analysis completed in one statement.
func (r *AnalysisRepository) SaveResult(ctx context.Context, id string, res domain.AnalysisResult) error {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal analysis result: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE analyses
SET result = $2, is_deepfake = $3, authenticity = $4, status = $5, error_message = '', updated_at = $6
WHERE id = $1
`, id, resultJSON, res.IsDeepfake, res.BaseMetrics.Authenticity, string(domain.StatusCompleted), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis result: %w", err)
	}
	return requireAffected(result, "save analysis result", id)
}

func requireAffected(result sql.Result, op, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}

type analysisScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row analysisScanner) (domain.Analysis, error) {
	var a domain.Analysis
	var kind, source, status string
	var mediaRaw, resultRaw []byte
	err := row.Scan(
		&a.ID,
		&a.FileName,
		&a.MimeType,
		&kind,
		&a.StoragePath,
		&source,
		&a.ForceAuthentic,
		&status,
		&a.Error,
		&mediaRaw,
		&resultRaw,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scan analysis: %w", err)
	}
	a.MediaKind = domain.MediaKind(kind)
	a.Source = domain.AnalysisSource(source)
	a.Status = domain.AnalysisStatus(status)

	if len(mediaRaw) > 0 {
		if err := json.Unmarshal(mediaRaw, &a.Media); err != nil {
			return a, fmt.Errorf("unmarshal media info: %w", err)
		}
	}
	if len(resultRaw) > 0 {
		var res domain.AnalysisResult
		if err := json.Unmarshal(resultRaw, &res); err != nil {
			return a, fmt.Errorf("unmarshal analysis result: %w", err)
		}
		a.Result = &res
	}
	return a, nil
}
