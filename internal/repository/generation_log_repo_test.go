package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/content-generation-api/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationLogRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationLogRepo(db)

	entry := &models.GenerationLog{
		ID:                "run-1",
		Status:            models.RunStatusSuccess,
		Message:           "processed 2 of 2 content units",
		FilesProcessed:    2,
		PostsCreated:      5,
		TagsCreated:       3,
		CategoriesCreated: 1,
		Warnings:          []string{"notes.txt skipped: disallowed file extension"},
		Errors:            []string{},
		DurationMs:        120,
		TriggeredBy:       "author-1",
		CreatedAt:         time.Now(),
	}

	mock.ExpectExec(`INSERT INTO generation_logs`).
		WithArgs(
			entry.ID, entry.Status, entry.Message, entry.FilesProcessed, entry.PostsCreated,
			entry.TagsCreated, entry.CategoriesCreated, pq.Array(entry.Warnings), pq.Array(entry.Errors),
			entry.DurationMs, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationLogRepo_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationLogRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM generation_logs`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "status", "message", "files_processed", "posts_created", "tags_created",
			"categories_created", "warnings", "errors", "duration_ms", "triggered_by", "created_at",
		}).
			AddRow("run-2", "success", "processed 1 of 1 content units", 1, 2, 1, 0, "{}", "{}", 80, "author-1", now).
			AddRow("run-1", "error", "author nobody does not exist", 0, 0, 0, 0, "{}", `{"abort"}`, 5, nil, now.Add(-time.Minute)))

	logs, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "run-2", logs[0].ID)
	assert.Equal(t, models.RunStatusSuccess, logs[0].Status)
	assert.Equal(t, 2, logs[0].PostsCreated)
	assert.Equal(t, "author-1", logs[0].TriggeredBy)

	assert.Equal(t, models.RunStatusError, logs[1].Status)
	assert.Equal(t, []string{"abort"}, logs[1].Errors)
	assert.Empty(t, logs[1].TriggeredBy, "NULL triggered_by scans to empty")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationLogRepo_DeleteAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGenerationLogRepo(db)

	mock.ExpectExec(`DELETE FROM generation_logs`).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorRepo(db)

	mock.ExpectQuery(`SELECT id, name, role FROM authors`).
		WithArgs("author-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}).
			AddRow("author-1", "Test Author", "editor"))

	author, err := repo.GetByID(context.Background(), "author-1")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "editor", author.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthorRepo_GetByID_Absent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuthorRepo(db)

	mock.ExpectQuery(`SELECT id, name, role FROM authors`).
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "role"}))

	author, err := repo.GetByID(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, author, "absent author is nil, nil")
	assert.NoError(t, mock.ExpectationsWereMet())
}
