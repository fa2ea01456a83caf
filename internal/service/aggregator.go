package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// runAggregator accumulates one run's statistics. Counters are atomic and
// the message lists are append-only, so concurrent units never lose updates.
// Components report into it; nothing reads it back before Finalize.
type runAggregator struct {
	start time.Time

	filesProcessed    atomic.Int64
	postsCreated      atomic.Int64
	tagsCreated       atomic.Int64
	categoriesCreated atomic.Int64
	unitsAttempted    atomic.Int64
	unitsSucceeded    atomic.Int64

	mu       sync.Mutex
	warnings []string
	errors   []string
}

// newRunAggregator creates an aggregator with the run clock started
func newRunAggregator() *runAggregator {
	return &runAggregator{start: time.Now()}
}

// RecordSkip records a loader-level candidate rejection as a warning
func (a *runAggregator) RecordSkip(name, reason string) {
	a.appendWarning(fmt.Sprintf("%s skipped: %s", name, reason))
}

// Record folds one unit outcome into the run totals. Safe for concurrent
// callers; message order across units is best-effort.
func (a *runAggregator) Record(outcome models.UnitOutcome) {
	a.unitsAttempted.Add(1)

	switch outcome.Kind {
	case models.UnitFailed:
		a.appendError(fmt.Sprintf("unit %s failed: %s", outcome.Unit, outcome.Reason))
		return
	case models.UnitCreated, models.UnitSkipped:
		a.unitsSucceeded.Add(1)
		a.filesProcessed.Add(1)
	}

	a.categoriesCreated.Add(int64(outcome.CategoriesCreated))
	a.tagsCreated.Add(int64(outcome.TagsCreated))
	a.postsCreated.Add(int64(outcome.PostsCreated))

	for _, slug := range outcome.SkippedSlugs {
		a.appendWarning(fmt.Sprintf("unit %s: post %q already existed, skipped", outcome.Unit, slug))
	}
}

func (a *runAggregator) appendWarning(msg string) {
	a.mu.Lock()
	a.warnings = append(a.warnings, msg)
	a.mu.Unlock()
}

func (a *runAggregator) appendError(msg string) {
	a.mu.Lock()
	a.errors = append(a.errors, msg)
	a.mu.Unlock()
}

// Finalize freezes the statistics, computes the aggregate status and persists
// one immutable generation log row. Called exactly once per run, including
// aborted ones; a failing log insert is logged but never discards the result.
func (a *runAggregator) Finalize(ctx context.Context, logs repository.GenerationLogRepository, triggeredBy, message string, aborted bool, logger zerolog.Logger) (*models.RunResult, *models.GenerationLog) {
	duration := time.Since(a.start)

	a.mu.Lock()
	warnings := append([]string(nil), a.warnings...)
	errs := append([]string(nil), a.errors...)
	a.mu.Unlock()

	// An empty or fully-rejected source is a successful no-op; "zero units
	// succeeded" only fails the run when units were actually attempted.
	status := models.RunStatusSuccess
	if aborted || (a.unitsAttempted.Load() > 0 && a.unitsSucceeded.Load() == 0) {
		status = models.RunStatusError
	}

	result := &models.RunResult{
		Status:            status,
		Message:           message,
		DurationSeconds:   duration.Seconds(),
		FilesProcessed:    int(a.filesProcessed.Load()),
		PostsCreated:      int(a.postsCreated.Load()),
		TagsCreated:       int(a.tagsCreated.Load()),
		CategoriesCreated: int(a.categoriesCreated.Load()),
		Warnings:          warnings,
		Errors:            errs,
	}

	entry := &models.GenerationLog{
		ID:                uuid.New().String(),
		Status:            status,
		Message:           message,
		FilesProcessed:    result.FilesProcessed,
		PostsCreated:      result.PostsCreated,
		TagsCreated:       result.TagsCreated,
		CategoriesCreated: result.CategoriesCreated,
		Warnings:          warnings,
		Errors:            errs,
		DurationMs:        duration.Milliseconds(),
		TriggeredBy:       triggeredBy,
		CreatedAt:         time.Now(),
	}

	if err := logs.Create(ctx, entry); err != nil {
		logger.Error().Err(err).Str("run_id", entry.ID).Msg("Failed to persist generation log")
	}

	return result, entry
}
