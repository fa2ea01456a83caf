package repository

import (
	"context"
	"time"

	"github.com/content-generation-api/internal/database"
	"github.com/content-generation-api/internal/models"
	"github.com/rs/zerolog"
)

// UnitTx is the transactional view the materializer works against while
// persisting one content unit. Every method runs inside the transaction
// opened by ContentStore.WithinUnitTx.
type UnitTx interface {
	// EnsureCategory resolves the category by slug, creating it when absent.
	// created reports whether this call inserted the row.
	EnsureCategory(ctx context.Context, slug, name string) (id string, created bool, err error)

	// TagsBySlugs resolves existing tags in one batched query (slug → id)
	TagsBySlugs(ctx context.Context, slugs []string) (map[string]string, error)

	// EnsureTag creates a missing tag, resolving benign create races through
	// the store's uniqueness constraint
	EnsureTag(ctx context.Context, slug, name string) (id string, created bool, err error)

	// ExistingPostSlugs returns which of the given slugs already have posts,
	// in one batched query
	ExistingPostSlugs(ctx context.Context, slugs []string) (map[string]bool, error)

	// InsertPosts inserts the posts and their tag links, returning how many
	// rows were actually inserted
	InsertPosts(ctx context.Context, posts []*models.Post, tagIDs []string) (int, error)
}

// ContentStore owns the per-unit transaction boundary
type ContentStore interface {
	// WithinUnitTx runs fn inside one transaction bounded by timeout. The
	// context handed to fn carries the deadline, so every statement in the
	// unit observes it. Any error from fn rolls back every write.
	WithinUnitTx(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, tx UnitTx) error) error
}

// GenerationLogRepository persists and queries run audit records
type GenerationLogRepository interface {
	Create(ctx context.Context, log *models.GenerationLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.GenerationLog, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// AuthorRepository validates the triggering principal
type AuthorRepository interface {
	// GetByID returns nil, nil when no author exists with the given id
	GetByID(ctx context.Context, id string) (*models.Author, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Content       ContentStore
	GenerationLog GenerationLogRepository
	Author        AuthorRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB, log zerolog.Logger) *Repositories {
	return &Repositories{
		Content:       NewContentStore(db, log),
		GenerationLog: NewGenerationLogRepo(db),
		Author:        NewAuthorRepo(db),
	}
}
