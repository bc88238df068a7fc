package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elasticlm-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

const documentColumns = `id, file_name, source, source_url, storage_path, status, summary_message, detail, chunk_count, created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(
		&d.ID, &d.FileName, &d.Source, &d.SourceURL, &d.StoragePath, &d.Status,
		&d.SummaryMessage, &d.Detail, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.StatusPending
	}
	if d.Source == "" {
		d.Source = models.SourceFile
	}

	query := `INSERT INTO documents (id, file_name, source, source_url, storage_path, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		d.ID, d.FileName, d.Source, d.SourceURL, d.StoragePath, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	return scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

// GetLatestByFileName returns the most recent upload with the given name.
func (r *DocumentRepo) GetLatestByFileName(ctx context.Context, fileName string) (*models.Document, error) {
	return scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE file_name = $1 ORDER BY created_at DESC LIMIT 1`, fileName))
}

func (r *DocumentRepo) List(ctx context.Context) ([]*models.Document, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	return err
}

func (r *DocumentRepo) MarkDone(ctx context.Context, id uuid.UUID, summaryMessage string, chunkCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE documents SET status = $1, summary_message = $2, chunk_count = $3, detail = NULL, updated_at = NOW()
		WHERE id = $4`,
		models.StatusDone, summaryMessage, chunkCount, id,
	)
	return err
}

func (r *DocumentRepo) MarkError(ctx context.Context, id uuid.UUID, detail string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE documents SET status = $1, detail = $2, updated_at = NOW() WHERE id = $3",
		models.StatusError, detail, id,
	)
	return err
}

func (r *DocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkStaleAsError fails uploads stuck in pending or processing since before cutoff.
func (r *DocumentRepo) MarkStaleAsError(ctx context.Context, cutoff time.Time, detail string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET status = $1, detail = $2, updated_at = NOW()
		WHERE status IN ($3, $4) AND updated_at < $5`,
		models.StatusError, detail, models.StatusPending, models.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
