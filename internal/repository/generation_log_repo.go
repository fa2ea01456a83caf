package repository

import (
	"context"
	"database/sql"

	"github.com/content-generation-api/internal/database"
	"github.com/content-generation-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// generationLogRepo is the concrete implementation of GenerationLogRepository
type generationLogRepo struct {
	db *database.DB
}

// NewGenerationLogRepo creates a new generation log repository
func NewGenerationLogRepo(db *database.DB) GenerationLogRepository {
	return &generationLogRepo{db: db}
}

// Create inserts one immutable run record
func (r *generationLogRepo) Create(ctx context.Context, log *models.GenerationLog) error {
	query := `
		INSERT INTO generation_logs (id, status, message, files_processed, posts_created,
			tags_created, categories_created, warnings, errors, duration_ms, triggered_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.Status, log.Message, log.FilesProcessed, log.PostsCreated,
		log.TagsCreated, log.CategoriesCreated, pq.Array(log.Warnings), pq.Array(log.Errors),
		log.DurationMs, nullString(log.TriggeredBy), log.CreatedAt,
	)
	return err
}

// ListRecent retrieves the most recent run records, newest first
func (r *generationLogRepo) ListRecent(ctx context.Context, limit int) ([]*models.GenerationLog, error) {
	query := `
		SELECT id, status, message, files_processed, posts_created, tags_created,
			categories_created, warnings, errors, duration_ms, triggered_by, created_at
		FROM generation_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.GenerationLog
	for rows.Next() {
		var entry models.GenerationLog
		var triggeredBy sql.NullString
		err := rows.Scan(
			&entry.ID, &entry.Status, &entry.Message, &entry.FilesProcessed,
			&entry.PostsCreated, &entry.TagsCreated, &entry.CategoriesCreated,
			pq.Array(&entry.Warnings), pq.Array(&entry.Errors),
			&entry.DurationMs, &triggeredBy, &entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entry.TriggeredBy = triggeredBy.String
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}

// DeleteAll purges every run record, returning how many were removed
func (r *generationLogRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM generation_logs`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// newRowID generates an application-side row identifier
func newRowID() string {
	return uuid.New().String()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
