package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/content-generation-api/internal/database"
	"github.com/content-generation-api/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// contentStore is the PostgreSQL implementation of ContentStore
type contentStore struct {
	db  *database.DB
	log zerolog.Logger
}

// NewContentStore creates a new content store
func NewContentStore(db *database.DB, log zerolog.Logger) ContentStore {
	return &contentStore{
		db:  db,
		log: log.With().Str("component", "content_store").Logger(),
	}
}

// WithinUnitTx opens one transaction bounded by timeout, runs fn against it
// and commits. fn receives the deadline-bounded context so every statement
// of the unit observes the timeout. Any error rolls back every write of the
// unit.
func (s *contentStore) WithinUnitTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx UnitTx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(txCtx, &unitTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// unitTx implements UnitTx over one sql.Tx
type unitTx struct {
	tx *sql.Tx
}

// EnsureCategory resolves or creates the category. The single
// INSERT ... ON CONFLICT DO NOTHING RETURNING statement decides
// created-vs-existing; the follow-up SELECT only runs when a concurrent
// creator won the race, so one creator fails gracefully and re-reads instead
// of aborting the unit.
func (t *unitTx) EnsureCategory(ctx context.Context, slug, name string) (string, bool, error) {
	var id string
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE slug = $1`, slug,
	).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("lookup category %q: %w", slug, err)
	}

	newID := newRowID()
	err = t.tx.QueryRowContext(ctx,
		`INSERT INTO categories (id, slug, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slug) DO NOTHING
		 RETURNING id`,
		newID, slug, name, time.Now(),
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("create category %q: %w", slug, err)
	}

	// Lost a benign create race; the committed row must exist now
	err = t.tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE slug = $1`, slug,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("re-read category %q after conflict: %w", slug, err)
	}
	return id, false, nil
}

// TagsBySlugs resolves existing tags in one batched query
func (t *unitTx) TagsBySlugs(ctx context.Context, slugs []string) (map[string]string, error) {
	result := make(map[string]string, len(slugs))
	if len(slugs) == 0 {
		return result, nil
	}

	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, slug FROM tags WHERE slug = ANY($1)`, pq.Array(slugs),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, slug string
		if err := rows.Scan(&id, &slug); err != nil {
			return nil, err
		}
		result[slug] = id
	}
	return result, rows.Err()
}

// EnsureTag creates a missing tag with the same conflict-then-re-read
// discipline as EnsureCategory
func (t *unitTx) EnsureTag(ctx context.Context, slug, name string) (string, bool, error) {
	var id string
	newID := newRowID()
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO tags (id, slug, name, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (slug) DO NOTHING
		 RETURNING id`,
		newID, slug, name, time.Now(),
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("create tag %q: %w", slug, err)
	}

	err = t.tx.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE slug = $1`, slug,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("re-read tag %q after conflict: %w", slug, err)
	}
	return id, false, nil
}

// ExistingPostSlugs returns the subset of slugs that already have posts
func (t *unitTx) ExistingPostSlugs(ctx context.Context, slugs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(slugs))
	if len(slugs) == 0 {
		return existing, nil
	}

	rows, err := t.tx.QueryContext(ctx,
		`SELECT slug FROM posts WHERE slug = ANY($1)`, pq.Array(slugs),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup existing posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		existing[slug] = true
	}
	return existing, rows.Err()
}

// InsertPosts inserts the posts with one multi-row statement, then links
// every inserted post to the unit's tag set. ON CONFLICT DO NOTHING means a
// cross-unit slug race surfaces as a silently skipped row, not a rolled-back
// unit.
func (t *unitTx) InsertPosts(ctx context.Context, posts []*models.Post, tagIDs []string) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	const cols = 13
	var sb strings.Builder
	sb.WriteString(`INSERT INTO posts
		(id, slug, title, description, content, category_id, author_id,
		 is_premium, is_published, is_featured, status, media_url, created_at)
		VALUES `)
	args := make([]interface{}, 0, len(posts)*cols)
	now := time.Now()
	for i, p := range posts {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString("(")
		for j := 1; j <= cols; j++ {
			if j > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+j)
		}
		sb.WriteString(")")
		args = append(args,
			p.ID, p.Slug, p.Title, p.Description, p.Content, p.CategoryID, p.AuthorID,
			p.IsPremium, p.IsPublished, p.IsFeatured, p.Status, nullString(p.MediaURL), now,
		)
	}
	sb.WriteString(` ON CONFLICT (slug) DO NOTHING RETURNING id`)

	rows, err := t.tx.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("insert posts: %w", err)
	}
	defer rows.Close()

	var insertedIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		insertedIDs = append(insertedIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if len(insertedIDs) == 0 || len(tagIDs) == 0 {
		return len(insertedIDs), nil
	}

	var lb strings.Builder
	lb.WriteString(`INSERT INTO post_tags (post_id, tag_id) VALUES `)
	linkArgs := make([]interface{}, 0, len(insertedIDs)*len(tagIDs)*2)
	n := 0
	for _, postID := range insertedIDs {
		for _, tagID := range tagIDs {
			if n > 0 {
				lb.WriteString(", ")
			}
			fmt.Fprintf(&lb, "($%d, $%d)", n*2+1, n*2+2)
			linkArgs = append(linkArgs, postID, tagID)
			n++
		}
	}
	lb.WriteString(` ON CONFLICT DO NOTHING`)

	if _, err := t.tx.ExecContext(ctx, lb.String(), linkArgs...); err != nil {
		return 0, fmt.Errorf("link post tags: %w", err)
	}

	return len(insertedIDs), nil
}
