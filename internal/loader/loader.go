package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/models"
	"github.com/content-generation-api/internal/security"
	"github.com/content-generation-api/internal/validation"
	"github.com/rs/zerolog"
)

// AcceptedUnit is one validated, sanitized content unit ready for
// materialization
type AcceptedUnit struct {
	Name      string
	Unit      *models.ContentUnit
	SizeBytes int64
}

// SkipFunc is invoked once per rejected candidate. event is non-empty for
// rejections that should additionally be reported to the security-event sink
// (suspicious content, oversized payloads).
type SkipFunc func(name, reason string, event security.EventKind)

// candidate is one raw unit before parsing. load is deferred so oversized
// files are rejected without reading them. A non-empty skip marks a candidate
// the source already rejected (it is surfaced as a warning, not enumerated
// further).
type candidate struct {
	name string
	size int64
	skip string
	load func() ([]byte, error)
}

// Source enumerates candidate content units
type Source interface {
	// Candidates returns the raw candidates in enumeration order. An error
	// here is an abort error: the source itself is unreadable.
	Candidates() ([]candidate, error)
}

// DirectorySource enumerates files in a directory, filtered by the allowed
// extensions
type DirectorySource struct {
	Dir               string
	AllowedExtensions []string
}

// Candidates lists the directory's regular files. Files with a disallowed
// extension are still returned, pre-marked for a skip, so the run's warnings
// enumerate them by name.
func (s DirectorySource) Candidates() ([]candidate, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", s.Dir, err)
	}

	var out []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !extensionAllowed(name, s.AllowedExtensions) {
			out = append(out, candidate{name: name, skip: "disallowed file extension"})
			continue
		}
		info, err := entry.Info()
		if err != nil {
			out = append(out, candidate{name: name, skip: fmt.Sprintf("unreadable: %v", err)})
			continue
		}
		path := filepath.Join(s.Dir, name)
		out = append(out, candidate{
			name: name,
			size: info.Size(),
			load: func() ([]byte, error) { return os.ReadFile(path) },
		})
	}
	return out, nil
}

func extensionAllowed(name string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// InlineSource wraps already-submitted documents from the direct submission
// path. They pass through the same size and validation gates as files.
type InlineSource struct {
	Docs []json.RawMessage
}

// Candidates returns one candidate per submitted document
func (s InlineSource) Candidates() ([]candidate, error) {
	out := make([]candidate, 0, len(s.Docs))
	for i, doc := range s.Docs {
		doc := doc
		out = append(out, candidate{
			name: fmt.Sprintf("units[%d]", i),
			size: int64(len(doc)),
			load: func() ([]byte, error) { return doc, nil },
		})
	}
	return out, nil
}

// Loader turns a source into validated content units, recording one skip per
// rejected candidate without aborting enumeration
type Loader struct {
	cfg       *config.PipelineConfig
	validator *validation.Validator
	log       zerolog.Logger
}

// New creates a loader
func New(cfg *config.PipelineConfig, validator *validation.Validator, log zerolog.Logger) *Loader {
	return &Loader{
		cfg:       cfg,
		validator: validator,
		log:       log.With().Str("component", "loader").Logger(),
	}
}

// Load enumerates, validates and sanitizes the source's candidates. A
// candidate failure records a skip and moves on; only an unreadable source
// returns an error. Zero accepted units is a valid result.
func (l *Loader) Load(ctx context.Context, src Source, onSkip SkipFunc) ([]AcceptedUnit, error) {
	candidates, err := src.Candidates()
	if err != nil {
		return nil, err
	}

	var accepted []AcceptedUnit
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return accepted, ctx.Err()
		default:
		}

		if c.skip != "" {
			onSkip(c.name, c.skip, "")
			continue
		}

		// Size gate runs before the bytes are read or parsed
		if c.size > l.cfg.MaxFileSize {
			onSkip(c.name, fmt.Sprintf("exceeds maximum size of %d bytes (%d bytes)", l.cfg.MaxFileSize, c.size), security.EventOversizedPayload)
			continue
		}

		raw, err := c.load()
		if err != nil {
			onSkip(c.name, fmt.Sprintf("unreadable: %v", err), "")
			continue
		}

		var unit models.ContentUnit
		if err := json.Unmarshal(raw, &unit); err != nil {
			onSkip(c.name, fmt.Sprintf("invalid JSON: %v", err), "")
			continue
		}

		if errs := l.validator.ValidateUnit(&unit); len(errs) > 0 {
			event := security.EventKind("")
			if validation.HasSecurityViolation(errs) {
				event = security.EventSuspiciousContent
			}
			onSkip(c.name, joinReasons(errs), event)
			continue
		}
		l.validator.Sanitize(&unit)

		accepted = append(accepted, AcceptedUnit{Name: c.name, Unit: &unit, SizeBytes: c.size})

		l.log.Debug().
			Str("candidate", c.name).
			Int64("size_bytes", c.size).
			Int("posts", len(unit.Posts)).
			Int("tags", len(unit.Tags)).
			Msg("Candidate accepted")
	}

	return accepted, nil
}

// joinReasons flattens validation errors into one self-describing skip reason
func joinReasons(errs []validation.ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
