package service

import (
	"context"
	"strings"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/loader"
	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// materializer turns one validated content unit into persistent rows inside
// a single bounded-timeout transaction. A failed unit rolls back completely
// and is never retried automatically: callers re-submit failed units using
// the run's errors list.
type materializer struct {
	store repository.ContentStore
	cfg   *config.PipelineConfig
	log   zerolog.Logger
}

// newMaterializer creates a materializer
func newMaterializer(store repository.ContentStore, cfg *config.PipelineConfig, log zerolog.Logger) *materializer {
	return &materializer{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "materializer").Logger(),
	}
}

// Materialize persists one unit: category, then tags, then posts, then
// commit. The returned outcome carries create counts only when the
// transaction committed.
func (m *materializer) Materialize(ctx context.Context, authorID string, accepted loader.AcceptedUnit) models.UnitOutcome {
	unit := accepted.Unit

	var (
		categoriesCreated int
		tagsCreated       int
		postsCreated      int
		skippedSlugs      []string
	)

	err := m.store.WithinUnitTx(ctx, m.cfg.TransactionTimeout, func(ctx context.Context, tx repository.UnitTx) error {
		categoryID, created, err := tx.EnsureCategory(ctx, unit.Category, displayNameFromSlug(unit.Category))
		if err != nil {
			return err
		}
		if created {
			categoriesCreated++
		}

		tagSlugs := make([]string, 0, len(unit.Tags))
		for _, tag := range unit.Tags {
			tagSlugs = append(tagSlugs, tag.Slug)
		}
		existingTags, err := tx.TagsBySlugs(ctx, tagSlugs)
		if err != nil {
			return err
		}

		// The resolved tag-id set is reused for every post in the unit
		tagIDs := make([]string, 0, len(unit.Tags))
		for _, tag := range unit.Tags {
			id, ok := existingTags[tag.Slug]
			if !ok {
				var created bool
				id, created, err = tx.EnsureTag(ctx, tag.Slug, tag.Name)
				if err != nil {
					return err
				}
				if created {
					tagsCreated++
				}
			}
			tagIDs = append(tagIDs, id)
		}

		postSlugs := make([]string, 0, len(unit.Posts))
		for _, post := range unit.Posts {
			postSlugs = append(postSlugs, post.Slug)
		}
		existing, err := tx.ExistingPostSlugs(ctx, postSlugs)
		if err != nil {
			return err
		}

		var toInsert []*models.Post
		for _, post := range unit.Posts {
			if existing[post.Slug] {
				skippedSlugs = append(skippedSlugs, post.Slug)
				continue
			}
			toInsert = append(toInsert, &models.Post{
				ID:          uuid.New().String(),
				Slug:        post.Slug,
				Title:       post.Title,
				Description: post.Description,
				Content:     post.Content,
				CategoryID:  categoryID,
				AuthorID:    authorID,
				IsPremium:   post.IsPremium,
				IsPublished: post.IsPublished,
				IsFeatured:  post.IsFeatured,
				Status:      post.Status,
				MediaURL:    post.MediaURL,
			})
		}

		for start := 0; start < len(toInsert); start += m.cfg.BatchSize {
			end := start + m.cfg.BatchSize
			if end > len(toInsert) {
				end = len(toInsert)
			}
			inserted, err := tx.InsertPosts(ctx, toInsert[start:end], tagIDs)
			if err != nil {
				return err
			}
			postsCreated += inserted
		}

		return nil
	})

	if err != nil {
		m.log.Error().Err(err).
			Str("unit", unit.Category).
			Str("candidate", accepted.Name).
			Msg("Unit materialization rolled back")
		// Nothing survived the rollback, so the outcome carries no counts
		return models.UnitOutcome{
			Unit:   unit.Category,
			Kind:   models.UnitFailed,
			Reason: err.Error(),
		}
	}

	kind := models.UnitCreated
	if categoriesCreated+tagsCreated+postsCreated == 0 {
		kind = models.UnitSkipped
	}

	m.log.Info().
		Str("unit", unit.Category).
		Int("categories_created", categoriesCreated).
		Int("tags_created", tagsCreated).
		Int("posts_created", postsCreated).
		Int("posts_skipped", len(skippedSlugs)).
		Msg("Unit materialized")

	return models.UnitOutcome{
		Unit:              unit.Category,
		Kind:              kind,
		CategoriesCreated: categoriesCreated,
		TagsCreated:       tagsCreated,
		PostsCreated:      postsCreated,
		SkippedSlugs:      skippedSlugs,
	}
}

// displayNameFromSlug derives a human-readable category name from its slug:
// "chatgpt-prompts" becomes "Chatgpt Prompts". A slug made only of
// separators keeps its raw form so the name is never empty.
func displayNameFromSlug(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(words) == 0 {
		return slug
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
