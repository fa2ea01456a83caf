package service

import (
	"context"
	"fmt"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/loader"
	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/repository"
	"github.com/content-generation-api/internal/security"
	"github.com/content-generation-api/internal/validation"
	"github.com/rs/zerolog"
)

// generationService is the concrete implementation of GenerationService. It
// wires the pipeline stages together: author check, load, schedule,
// materialize, finalize.
type generationService struct {
	repos *repository.Repositories
	cfg   *config.Config
	sink  security.EventSink
	log   zerolog.Logger
}

// newGenerationService creates a new GenerationService
func newGenerationService(repos *repository.Repositories, cfg *config.Config, sink security.EventSink, log zerolog.Logger) *generationService {
	return &generationService{
		repos: repos,
		cfg:   cfg,
		sink:  sink,
		log:   log.With().Str("service", "generation").Logger(),
	}
}

// Run executes one generation run synchronously. Abort errors (invalid
// author, unreadable directory) return an error after persisting an error
// log; per-candidate and per-unit failures are folded into the result.
func (s *generationService) Run(ctx context.Context, req *models.RunRequest) (*models.RunResult, error) {
	agg := newRunAggregator()

	if err := s.checkAuthor(ctx, req.AuthorID); err != nil {
		agg.Finalize(ctx, s.repos.GenerationLog, req.AuthorID, err.Error(), true, s.log)
		return nil, err
	}

	src := s.resolveSource(req)
	units, err := s.loadUnits(ctx, src, agg)
	if err != nil {
		abortErr := fmt.Errorf("source unreadable: %w", err)
		agg.Finalize(ctx, s.repos.GenerationLog, req.AuthorID, abortErr.Error(), true, s.log)
		return nil, abortErr
	}

	s.log.Info().
		Int("accepted_units", len(units)).
		Int("concurrency", s.cfg.Pipeline.MaxConcurrentUnits).
		Str("author_id", req.AuthorID).
		Msg("Starting generation run")

	mat := newMaterializer(s.repos.Content, &s.cfg.Pipeline, s.log)
	sched := newBatchScheduler(s.cfg.Pipeline.MaxConcurrentUnits, s.log)

	sched.Run(ctx, len(units), func(ctx context.Context, i int) {
		unit := units[i]
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().
					Interface("panic", r).
					Str("unit", unit.Unit.Category).
					Msg("Unit materialization panicked - recovered")
				agg.Record(models.UnitOutcome{
					Unit:   unit.Unit.Category,
					Kind:   models.UnitFailed,
					Reason: fmt.Sprintf("panic: %v", r),
				})
			}
		}()
		agg.Record(mat.Materialize(ctx, req.AuthorID, unit))
	})

	result, entry := agg.Finalize(ctx, s.repos.GenerationLog, req.AuthorID, runMessage(agg), false, s.log)

	s.log.Info().
		Str("run_id", entry.ID).
		Str("status", string(result.Status)).
		Int("files_processed", result.FilesProcessed).
		Int("posts_created", result.PostsCreated).
		Int("tags_created", result.TagsCreated).
		Int("categories_created", result.CategoriesCreated).
		Int("warnings", len(result.Warnings)).
		Int("errors", len(result.Errors)).
		Float64("duration_seconds", result.DurationSeconds).
		Msg("Generation run completed")

	return result, nil
}

// checkAuthor validates the triggering principal before any unit runs
func (s *generationService) checkAuthor(ctx context.Context, authorID string) error {
	if authorID == "" {
		return fmt.Errorf("author_id is required")
	}
	author, err := s.repos.Author.GetByID(ctx, authorID)
	if err != nil {
		return fmt.Errorf("author lookup failed: %w", err)
	}
	if author == nil {
		return fmt.Errorf("author %s does not exist", authorID)
	}
	if required := s.cfg.Pipeline.RequiredAuthorRole; required != "" && author.Role != required {
		return fmt.Errorf("author %s does not have required role %q", authorID, required)
	}
	return nil
}

// resolveSource picks the directory or direct-submission path; both funnel
// through the same validator
func (s *generationService) resolveSource(req *models.RunRequest) loader.Source {
	if req.Directory != "" {
		return loader.DirectorySource{
			Dir:               req.Directory,
			AllowedExtensions: s.cfg.Pipeline.AllowedExtensions,
		}
	}
	return loader.InlineSource{Docs: req.Units}
}

// loadUnits runs the loader, recording skips and notifying the security sink
// for suspicious or oversized rejections
func (s *generationService) loadUnits(ctx context.Context, src loader.Source, agg *runAggregator) ([]loader.AcceptedUnit, error) {
	ld := loader.New(&s.cfg.Pipeline, validation.New(&s.cfg.Pipeline), s.log)
	return ld.Load(ctx, src, func(name, reason string, event security.EventKind) {
		agg.RecordSkip(name, reason)
		if event != "" {
			s.sink.Notify(ctx, security.Event{
				Kind:      event,
				Candidate: name,
				Reason:    reason,
			})
		}
	})
}

// runMessage summarizes the run for the result and the audit log
func runMessage(agg *runAggregator) string {
	attempted := agg.unitsAttempted.Load()
	succeeded := agg.unitsSucceeded.Load()
	if attempted == 0 {
		return "no content units to process"
	}
	return fmt.Sprintf("processed %d of %d content units", succeeded, attempted)
}

// ListLogs returns the most recent run records
func (s *generationService) ListLogs(ctx context.Context, limit int) ([]*models.GenerationLog, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repos.GenerationLog.ListRecent(ctx, limit)
}

// ClearLogs purges all run records
func (s *generationService) ClearLogs(ctx context.Context) (int64, error) {
	deleted, err := s.repos.GenerationLog.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("deleted", deleted).Msg("Generation logs cleared")
	return deleted, nil
}
