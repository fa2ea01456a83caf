package service

import (
	"context"
	"sync"
	"testing"

	"github.com/content-generation-api/internal/mocks"
	"github.com/content-generation-api/internal/models"
	"github.com/rs/zerolog"
)

func TestAggregator_ConcurrentRecords(t *testing.T) {
	agg := newRunAggregator()

	const units = 50
	var wg sync.WaitGroup
	for i := 0; i < units; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.Record(models.UnitOutcome{
				Unit:              "unit",
				Kind:              models.UnitCreated,
				CategoriesCreated: 1,
				TagsCreated:       2,
				PostsCreated:      3,
				SkippedSlugs:      []string{"dup"},
			})
		}()
	}
	wg.Wait()

	logs := mocks.NewMockGenerationLogRepository()
	result, _ := agg.Finalize(context.Background(), logs, "tester", "done", false, zerolog.Nop())

	if result.FilesProcessed != units {
		t.Errorf("filesProcessed = %d, want %d", result.FilesProcessed, units)
	}
	if result.CategoriesCreated != units {
		t.Errorf("categoriesCreated = %d, want %d", result.CategoriesCreated, units)
	}
	if result.TagsCreated != 2*units {
		t.Errorf("tagsCreated = %d, want %d", result.TagsCreated, 2*units)
	}
	if result.PostsCreated != 3*units {
		t.Errorf("postsCreated = %d, want %d", result.PostsCreated, 3*units)
	}
	if len(result.Warnings) != units {
		t.Errorf("warnings = %d, want one per skipped slug", len(result.Warnings))
	}
}

func TestAggregator_Status(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []models.UnitOutcome
		aborted  bool
		want     models.RunStatus
	}{
		{
			name: "all units succeed",
			outcomes: []models.UnitOutcome{
				{Unit: "a", Kind: models.UnitCreated, PostsCreated: 1},
			},
			want: models.RunStatusSuccess,
		},
		{
			name: "partial failure still succeeds",
			outcomes: []models.UnitOutcome{
				{Unit: "a", Kind: models.UnitCreated, PostsCreated: 1},
				{Unit: "b", Kind: models.UnitFailed, Reason: "boom"},
			},
			want: models.RunStatusSuccess,
		},
		{
			name: "every attempted unit failed",
			outcomes: []models.UnitOutcome{
				{Unit: "a", Kind: models.UnitFailed, Reason: "boom"},
				{Unit: "b", Kind: models.UnitFailed, Reason: "boom"},
			},
			want: models.RunStatusError,
		},
		{
			name:     "nothing attempted is a successful no-op",
			outcomes: nil,
			want:     models.RunStatusSuccess,
		},
		{
			name:    "abort always errors",
			aborted: true,
			want:    models.RunStatusError,
		},
		{
			name: "skipped-only unit counts as succeeded",
			outcomes: []models.UnitOutcome{
				{Unit: "a", Kind: models.UnitSkipped, SkippedSlugs: []string{"x"}},
			},
			want: models.RunStatusSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newRunAggregator()
			for _, o := range tt.outcomes {
				agg.Record(o)
			}
			logs := mocks.NewMockGenerationLogRepository()
			result, _ := agg.Finalize(context.Background(), logs, "", "", tt.aborted, zerolog.Nop())
			if result.Status != tt.want {
				t.Errorf("status = %q, want %q", result.Status, tt.want)
			}
		})
	}
}

func TestAggregator_FailedUnitContributesNoCounts(t *testing.T) {
	agg := newRunAggregator()
	agg.Record(models.UnitOutcome{Unit: "bad.json", Kind: models.UnitFailed, Reason: "constraint violation"})
	agg.Record(models.UnitOutcome{Unit: "good.json", Kind: models.UnitCreated, PostsCreated: 2, TagsCreated: 1, CategoriesCreated: 1})

	logs := mocks.NewMockGenerationLogRepository()
	result, _ := agg.Finalize(context.Background(), logs, "", "", false, zerolog.Nop())

	if result.FilesProcessed != 1 {
		t.Errorf("filesProcessed = %d, want 1 (failed unit is not processed)", result.FilesProcessed)
	}
	if result.PostsCreated != 2 || result.TagsCreated != 1 || result.CategoriesCreated != 1 {
		t.Errorf("counts = %d/%d/%d, want only the committed unit's", result.PostsCreated, result.TagsCreated, result.CategoriesCreated)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", result.Errors)
	}
}

func TestAggregator_FinalizePersistsLog(t *testing.T) {
	agg := newRunAggregator()
	agg.RecordSkip("notes.txt", "disallowed file extension")
	agg.Record(models.UnitOutcome{Unit: "a", Kind: models.UnitCreated, PostsCreated: 1})

	logs := mocks.NewMockGenerationLogRepository()
	result, entry := agg.Finalize(context.Background(), logs, "author-1", "processed 1 of 1 content units", false, zerolog.Nop())

	if len(logs.Logs) != 1 {
		t.Fatalf("expected one persisted log, got %d", len(logs.Logs))
	}
	stored := logs.Logs[0]
	if stored.ID != entry.ID {
		t.Errorf("persisted log id %q does not match returned entry %q", stored.ID, entry.ID)
	}
	if stored.Status != result.Status || stored.PostsCreated != result.PostsCreated {
		t.Error("persisted log disagrees with run result")
	}
	if stored.TriggeredBy != "author-1" {
		t.Errorf("triggeredBy = %q", stored.TriggeredBy)
	}
	if len(stored.Warnings) != 1 {
		t.Errorf("warnings = %v, want the loader skip", stored.Warnings)
	}
	if stored.DurationMs < 0 {
		t.Errorf("durationMs = %d", stored.DurationMs)
	}
}

func TestAggregator_FinalizeSurvivesLogFailure(t *testing.T) {
	agg := newRunAggregator()
	agg.Record(models.UnitOutcome{Unit: "a", Kind: models.UnitCreated, PostsCreated: 1})

	logs := mocks.NewMockGenerationLogRepository()
	logs.CreateErr = context.DeadlineExceeded

	result, _ := agg.Finalize(context.Background(), logs, "", "", false, zerolog.Nop())
	if result == nil || result.Status != models.RunStatusSuccess {
		t.Fatal("run result must survive a failing log insert")
	}
}
