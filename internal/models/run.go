package models

import (
	"encoding/json"
	"time"
)

// RunStatus is the aggregate outcome of one generation run
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// UnitOutcomeKind discriminates what happened to one content unit
type UnitOutcomeKind int

const (
	// UnitCreated means the unit committed and created at least one row
	UnitCreated UnitOutcomeKind = iota

	// UnitSkipped means the unit committed but everything already existed
	UnitSkipped

	// UnitFailed means the unit's transaction rolled back
	UnitFailed
)

// UnitOutcome is the per-unit result the materializer hands to the run
// aggregator. For a failed unit the create counts are always zero: nothing
// survived the rollback.
type UnitOutcome struct {
	Unit              string
	Kind              UnitOutcomeKind
	CategoriesCreated int
	TagsCreated       int
	PostsCreated      int
	SkippedSlugs      []string
	Reason            string
}

// RunRequest triggers one generation run. Exactly one of Directory or Units
// should be set; both funnel through the same validator.
type RunRequest struct {
	AuthorID  string            `json:"author_id"`
	Directory string            `json:"directory,omitempty"`
	Units     []json.RawMessage `json:"units,omitempty"`
}

// RunResult is returned synchronously to the caller after all groups finish
type RunResult struct {
	Status            RunStatus `json:"status"`
	Message           string    `json:"message"`
	DurationSeconds   float64   `json:"duration_seconds"`
	FilesProcessed    int       `json:"files_processed"`
	PostsCreated      int       `json:"posts_created"`
	TagsCreated       int       `json:"tags_created"`
	CategoriesCreated int       `json:"categories_created"`
	Warnings          []string  `json:"warnings"`
	Errors            []string  `json:"errors"`
}

// GenerationLog is the durable record of one completed (or aborted) run.
// Never mutated after creation.
type GenerationLog struct {
	ID                string    `json:"id" db:"id"`
	Status            RunStatus `json:"status" db:"status"`
	Message           string    `json:"message" db:"message"`
	FilesProcessed    int       `json:"files_processed" db:"files_processed"`
	PostsCreated      int       `json:"posts_created" db:"posts_created"`
	TagsCreated       int       `json:"tags_created" db:"tags_created"`
	CategoriesCreated int       `json:"categories_created" db:"categories_created"`
	Warnings          []string  `json:"warnings" db:"warnings"`
	Errors            []string  `json:"errors" db:"errors"`
	DurationMs        int64     `json:"duration_ms" db:"duration_ms"`
	TriggeredBy       string    `json:"triggered_by" db:"triggered_by"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
