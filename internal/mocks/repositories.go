package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/repository"
)

// MockAuthorRepository is an in-memory AuthorRepository
type MockAuthorRepository struct {
	mu      sync.Mutex
	Authors map[string]*models.Author
	FailErr error
}

// NewMockAuthorRepository creates an empty mock author repository
func NewMockAuthorRepository() *MockAuthorRepository {
	return &MockAuthorRepository{Authors: make(map[string]*models.Author)}
}

// Add registers an author
func (m *MockAuthorRepository) Add(author *models.Author) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Authors[author.ID] = author
}

// GetByID implements repository.AuthorRepository
func (m *MockAuthorRepository) GetByID(_ context.Context, id string) (*models.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailErr != nil {
		return nil, m.FailErr
	}
	return m.Authors[id], nil
}

// MockGenerationLogRepository is an in-memory GenerationLogRepository
type MockGenerationLogRepository struct {
	mu        sync.Mutex
	Logs      []*models.GenerationLog
	CreateErr error
}

// NewMockGenerationLogRepository creates an empty mock log repository
func NewMockGenerationLogRepository() *MockGenerationLogRepository {
	return &MockGenerationLogRepository{}
}

// Create implements repository.GenerationLogRepository
func (m *MockGenerationLogRepository) Create(_ context.Context, log *models.GenerationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	entry := *log
	m.Logs = append(m.Logs, &entry)
	return nil
}

// ListRecent implements repository.GenerationLogRepository
func (m *MockGenerationLogRepository) ListRecent(_ context.Context, limit int) ([]*models.GenerationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GenerationLog
	for i := len(m.Logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Logs[i])
	}
	return out, nil
}

// DeleteAll implements repository.GenerationLogRepository
func (m *MockGenerationLogRepository) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(len(m.Logs))
	m.Logs = nil
	return deleted, nil
}

// MockContentStore is an in-memory ContentStore with transactional
// (all-or-nothing) semantics and a real per-unit timeout. Delay simulates
// transaction latency for every unit and is applied outside the store lock,
// so concurrent units genuinely overlap. StallPostSlugs delays only the unit
// inserting the given slug, letting one unit run into its timeout while its
// siblings commit. FailPostSlugs makes InsertPosts fail for any batch
// containing one of the given slugs, forcing a mid-transaction rollback.
type MockContentStore struct {
	mu             sync.Mutex
	Categories     map[string]*models.Category // by slug
	Tags           map[string]*models.Tag      // by slug
	Posts          map[string]*models.Post     // by slug
	PostTags       map[string][]string         // post id → tag ids
	Delay          time.Duration
	StallPostSlugs map[string]time.Duration
	FailPostSlugs  map[string]bool
	nextID         int
}

// NewMockContentStore creates an empty mock content store
func NewMockContentStore() *MockContentStore {
	return &MockContentStore{
		Categories:     make(map[string]*models.Category),
		Tags:           make(map[string]*models.Tag),
		Posts:          make(map[string]*models.Post),
		PostTags:       make(map[string][]string),
		StallPostSlugs: make(map[string]time.Duration),
		FailPostSlugs:  make(map[string]bool),
	}
}

// WithinUnitTx implements repository.ContentStore. The timeout is enforced
// the way the real store enforces it: fn runs with a deadline-bounded
// context, and an expired deadline discards the staged writes so the unit's
// error is the context error.
func (m *MockContentStore) WithinUnitTx(ctx context.Context, timeout time.Duration, fn func(context.Context, repository.UnitTx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-txCtx.Done():
			return txCtx.Err()
		}
	}

	tx := &mockUnitTx{
		store:      m,
		categories: make(map[string]*models.Category),
		tags:       make(map[string]*models.Tag),
		posts:      make(map[string]*models.Post),
		postTags:   make(map[string][]string),
	}
	if err := fn(txCtx, tx); err != nil {
		// Rollback: staged writes are discarded
		return err
	}
	if err := txCtx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// newID must be called with the store lock held
func (m *MockContentStore) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// mockUnitTx stages writes until commit. Each operation holds the store lock
// only for its own duration, so a stalled unit never blocks its siblings.
type mockUnitTx struct {
	store      *MockContentStore
	categories map[string]*models.Category
	tags       map[string]*models.Tag
	posts      map[string]*models.Post
	postTags   map[string][]string
}

func (t *mockUnitTx) commit() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for slug, c := range t.categories {
		if _, ok := t.store.Categories[slug]; !ok {
			t.store.Categories[slug] = c
		}
	}
	for slug, tag := range t.tags {
		if _, ok := t.store.Tags[slug]; !ok {
			t.store.Tags[slug] = tag
		}
	}
	for slug, p := range t.posts {
		if _, ok := t.store.Posts[slug]; !ok {
			t.store.Posts[slug] = p
		}
	}
	for postID, tagIDs := range t.postTags {
		t.store.PostTags[postID] = append(t.store.PostTags[postID], tagIDs...)
	}
}

// EnsureCategory implements repository.UnitTx
func (t *mockUnitTx) EnsureCategory(_ context.Context, slug, name string) (string, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if c, ok := t.store.Categories[slug]; ok {
		return c.ID, false, nil
	}
	if c, ok := t.categories[slug]; ok {
		return c.ID, false, nil
	}
	c := &models.Category{ID: t.store.newID("cat"), Slug: slug, Name: name, CreatedAt: time.Now()}
	t.categories[slug] = c
	return c.ID, true, nil
}

// TagsBySlugs implements repository.UnitTx
func (t *mockUnitTx) TagsBySlugs(_ context.Context, slugs []string) (map[string]string, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	result := make(map[string]string, len(slugs))
	for _, slug := range slugs {
		if tag, ok := t.store.Tags[slug]; ok {
			result[slug] = tag.ID
		} else if tag, ok := t.tags[slug]; ok {
			result[slug] = tag.ID
		}
	}
	return result, nil
}

// EnsureTag implements repository.UnitTx
func (t *mockUnitTx) EnsureTag(_ context.Context, slug, name string) (string, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if tag, ok := t.store.Tags[slug]; ok {
		return tag.ID, false, nil
	}
	if tag, ok := t.tags[slug]; ok {
		return tag.ID, false, nil
	}
	tag := &models.Tag{ID: t.store.newID("tag"), Slug: slug, Name: name, CreatedAt: time.Now()}
	t.tags[slug] = tag
	return tag.ID, true, nil
}

// ExistingPostSlugs implements repository.UnitTx
func (t *mockUnitTx) ExistingPostSlugs(_ context.Context, slugs []string) (map[string]bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	existing := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if _, ok := t.store.Posts[slug]; ok {
			existing[slug] = true
		} else if _, ok := t.posts[slug]; ok {
			existing[slug] = true
		}
	}
	return existing, nil
}

// InsertPosts implements repository.UnitTx
func (t *mockUnitTx) InsertPosts(ctx context.Context, posts []*models.Post, tagIDs []string) (int, error) {
	for _, p := range posts {
		if stall := t.stallFor(p.Slug); stall > 0 {
			select {
			case <-time.After(stall):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	inserted := 0
	for _, p := range posts {
		if t.store.FailPostSlugs[p.Slug] {
			return 0, fmt.Errorf("insert posts: simulated constraint violation on %q", p.Slug)
		}
		if _, ok := t.store.Posts[p.Slug]; ok {
			continue
		}
		if _, ok := t.posts[p.Slug]; ok {
			continue
		}
		t.posts[p.Slug] = p
		t.postTags[p.ID] = append([]string(nil), tagIDs...)
		inserted++
	}
	return inserted, nil
}

func (t *mockUnitTx) stallFor(slug string) time.Duration {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.StallPostSlugs[slug]
}
