package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/content-generation-api/internal/database"
	"github.com/content-generation-api/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &database.DB{DB: db}, mock
}

// beginUnitTx opens a mock transaction and wraps it the way WithinUnitTx does
func beginUnitTx(t *testing.T, db *database.DB, mock sqlmock.Sqlmock) *unitTx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.Begin()
	require.NoError(t, err)
	return &unitTx{tx: tx}
}

func TestWithinUnitTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewContentStore(db, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectCommit()

	called := false
	err := store.WithinUnitTx(context.Background(), time.Second, func(ctx context.Context, tx UnitTx) error {
		require.NotNil(t, tx)
		_, ok := ctx.Deadline()
		require.True(t, ok, "fn must receive the deadline-bounded context")
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinUnitTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewContentStore(db, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinUnitTx(context.Background(), time.Second, func(_ context.Context, tx UnitTx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinUnitTx_TimeoutRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewContentStore(db, zerolog.Nop())

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.WithinUnitTx(context.Background(), 20*time.Millisecond, func(ctx context.Context, tx UnitTx) error {
		// Outlive the deadline the way a slow statement would
		select {
		case <-time.After(time.Second):
			t.Fatal("deadline never fired")
		case <-ctx.Done():
		}
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEnsureCategory_ResolvesExisting(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	mock.ExpectQuery(`SELECT id FROM categories`).
		WithArgs("chatgpt-prompts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))

	id, created, err := tx.EnsureCategory(context.Background(), "chatgpt-prompts", "Chatgpt Prompts")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", id)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCategory_CreatesWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	mock.ExpectQuery(`SELECT id FROM categories`).
		WithArgs("chatgpt-prompts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO categories`).
		WithArgs(sqlmock.AnyArg(), "chatgpt-prompts", "Chatgpt Prompts", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-new"))

	id, created, err := tx.EnsureCategory(context.Background(), "chatgpt-prompts", "Chatgpt Prompts")
	require.NoError(t, err)
	assert.Equal(t, "cat-new", id)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureCategory_ReReadsAfterLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	mock.ExpectQuery(`SELECT id FROM categories`).
		WithArgs("chatgpt-prompts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// ON CONFLICT DO NOTHING returns no row when a concurrent creator won
	mock.ExpectQuery(`INSERT INTO categories`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM categories`).
		WithArgs("chatgpt-prompts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-racer"))

	id, created, err := tx.EnsureCategory(context.Background(), "chatgpt-prompts", "Chatgpt Prompts")
	require.NoError(t, err)
	assert.Equal(t, "cat-racer", id)
	assert.False(t, created, "losing the create race must not count as a create")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagsBySlugs(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	slugs := []string{"writing", "coding"}
	mock.ExpectQuery(`SELECT id, slug FROM tags`).
		WithArgs(pq.Array(slugs)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug"}).
			AddRow("tag-1", "writing"))

	got, err := tx.TagsBySlugs(context.Background(), slugs)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"writing": "tag-1"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagsBySlugs_EmptySkipsQuery(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	got, err := tx.TagsBySlugs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTag_CreatesThenResolvesConflict(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs(sqlmock.AnyArg(), "writing", "Writing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-new"))

	id, created, err := tx.EnsureTag(context.Background(), "writing", "Writing")
	require.NoError(t, err)
	assert.Equal(t, "tag-new", id)
	assert.True(t, created)

	mock.ExpectQuery(`INSERT INTO tags`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT id FROM tags`).
		WithArgs("writing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tag-racer"))

	id, created, err = tx.EnsureTag(context.Background(), "writing", "Writing")
	require.NoError(t, err)
	assert.Equal(t, "tag-racer", id)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistingPostSlugs(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	slugs := []string{"essay-helper", "cover-letter"}
	mock.ExpectQuery(`SELECT slug FROM posts`).
		WithArgs(pq.Array(slugs)).
		WillReturnRows(sqlmock.NewRows([]string{"slug"}).AddRow("essay-helper"))

	got, err := tx.ExistingPostSlugs(context.Background(), slugs)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"essay-helper": true}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPosts(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	posts := []*models.Post{
		{ID: "p1", Slug: "essay-helper", Title: "Essay Helper", Content: "c", CategoryID: "cat-1", AuthorID: "a1", Status: models.PostStatusApproved},
		{ID: "p2", Slug: "cover-letter", Title: "Cover Letter", Content: "c", CategoryID: "cat-1", AuthorID: "a1", Status: models.PostStatusApproved},
	}

	// One of the two slugs loses a cross-unit race and is silently skipped
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("p1"))
	mock.ExpectExec(`INSERT INTO post_tags`).
		WithArgs("p1", "tag-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := tx.InsertPosts(context.Background(), posts, []string{"tag-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPosts_AllConflictedSkipsLinks(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	posts := []*models.Post{
		{ID: "p1", Slug: "essay-helper", Title: "t", Content: "c", CategoryID: "cat-1", AuthorID: "a1", Status: models.PostStatusApproved},
	}
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	inserted, err := tx.InsertPosts(context.Background(), posts, []string{"tag-1"})
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPosts_Empty(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	inserted, err := tx.InsertPosts(context.Background(), nil, []string{"tag-1"})
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPosts_ConstraintErrorFailsUnit(t *testing.T) {
	db, mock := newMockDB(t)
	tx := beginUnitTx(t, db, mock)

	posts := []*models.Post{
		{ID: "p1", Slug: "essay-helper", Title: "t", Content: "c", CategoryID: "cat-1", AuthorID: "a1", Status: models.PostStatusApproved},
	}
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnError(sql.ErrConnDone)

	_, err := tx.InsertPosts(context.Background(), posts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert posts")
}
