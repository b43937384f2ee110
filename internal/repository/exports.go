package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ExportStatus enumerates the lifecycle of a background export.
type ExportStatus string

const (
	StatusQueued     ExportStatus = "queued"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	// StatusEmpty marks a finished export whose document holds only the header.
	StatusEmpty  ExportStatus = "empty"
	StatusFailed ExportStatus = "failed"
)

// Done reports whether the export reached a final state with a document.
func (s ExportStatus) Done() bool {
	return s == StatusCompleted || s == StatusEmpty
}

// Export represents a row in the exports table.
type Export struct {
	ID           string       `json:"id"`
	ObjectKey    string       `json:"objectKey"`
	Status       ExportStatus `json:"status"`
	Rows         int          `json:"rows"`
	ErrorMessage *string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// ExportRepository wraps the SQL used by the API and the worker.
type ExportRepository struct {
	pool DB
}

// NewExportRepository constructs a repository.
func NewExportRepository(pool DB) *ExportRepository {
	return &ExportRepository{pool: pool}
}

// Create inserts a queued export before the job is enqueued.
func (r *ExportRepository) Create(ctx context.Context, exp *Export) error {
	now := time.Now().UTC()
	exp.Status = StatusQueued
	exp.CreatedAt = now
	exp.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO exports (id, object_key, status, row_count, error_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, exp.ID, exp.ObjectKey, exp.Status, 0, nil, exp.CreatedAt, exp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}
	return nil
}

// Get returns an export by id.
func (r *ExportRepository) Get(ctx context.Context, id string) (*Export, error) {
	var (
		exp      Export
		errorMsg sql.NullString
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, object_key, status, row_count, error_message, created_at, updated_at
		FROM exports WHERE id=$1
	`, id)
	if err := row.Scan(&exp.ID, &exp.ObjectKey, &exp.Status, &exp.Rows, &errorMsg, &exp.CreatedAt, &exp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("export %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select export: %w", err)
	}
	if errorMsg.Valid {
		msg := errorMsg.String
		exp.ErrorMessage = &msg
	}
	return &exp, nil
}

// MarkProcessing sets the status to processing.
func (r *ExportRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, StatusProcessing, nil, nil)
}

// MarkCompleted records the row count; a header-only document is stored as
// StatusEmpty.
func (r *ExportRepository) MarkCompleted(ctx context.Context, id string, rows int) error {
	status := StatusCompleted
	if rows == 0 {
		status = StatusEmpty
	}
	return r.updateStatus(ctx, id, status, &rows, nil)
}

// MarkFailed marks the attempt as failed and stores the message.
func (r *ExportRepository) MarkFailed(ctx context.Context, id string, msg string) error {
	return r.updateStatus(ctx, id, StatusFailed, nil, &msg)
}

func (r *ExportRepository) updateStatus(ctx context.Context, id string, status ExportStatus, rows *int, errorMsg *string) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `
		UPDATE exports
		SET status=$1,
			row_count = COALESCE($2, row_count),
			error_message = $3,
			updated_at=$4
		WHERE id=$5
	`, status, rows, errorMsg, now, id)
	if err != nil {
		return fmt.Errorf("update export: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("export %s: %w", id, ErrNotFound)
	}
	return nil
}
