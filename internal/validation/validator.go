package validation

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/content-generation-api/internal/config"
	"github.com/content-generation-api/internal/models"
	"github.com/microcosm-cc/bluemonday"
)

var (
	slugRegex    = regexp.MustCompile(`^[a-z0-9_-]+$`)
	tagNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 &+./_-]+$`)
)

// suspiciousPattern pairs a compiled pattern with a label used in the
// rejection reason
type suspiciousPattern struct {
	label string
	re    *regexp.Regexp
}

// suspiciousPatterns is the fixed set of markup and injection patterns that
// invalidate a whole unit on any match. A match is a rejection, never a
// sanitization candidate.
var suspiciousPatterns = []suspiciousPattern{
	{"script tag", regexp.MustCompile(`(?i)<\s*script`)},
	{"inline event handler", regexp.MustCompile(`(?i)\bon[a-z]+\s*=`)},
	{"javascript URI", regexp.MustCompile(`(?i)javascript\s*:`)},
	{"vbscript URI", regexp.MustCompile(`(?i)vbscript\s*:`)},
	{"data URI", regexp.MustCompile(`(?i)data\s*:\s*text/html`)},
	{"DOM injection API", regexp.MustCompile(`(?i)document\s*\.\s*(write|writeln|cookie)`)},
	{"eval call", regexp.MustCompile(`(?i)\beval\s*\(`)},
	{"embedded frame", regexp.MustCompile(`(?i)<\s*(iframe|object|embed)`)},
}

const (
	maxSlugLength        = 50
	maxTagNameLength     = 50
	maxTitleLength       = 200
	maxDescriptionLength = 500
)

// ValidationError represents a single validation error. Security is set when
// the error came from the suspicious-content filter, so callers can report
// the rejection to the security-event sink.
type ValidationError struct {
	Field    string      `json:"field"`
	Message  string      `json:"message"`
	Value    interface{} `json:"value,omitempty"`
	Security bool        `json:"-"`
}

// HasSecurityViolation reports whether any error in the list came from the
// suspicious-content filter
func HasSecurityViolation(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Security {
			return true
		}
	}
	return false
}

// Validator checks content units against structural and security rules and
// strips markup from accepted free text. Pure: it never touches the store.
type Validator struct {
	maxPostsPerUnit  int
	maxTagsPerUnit   int
	maxContentLength int
	policy           *bluemonday.Policy
}

// New creates a validator bound to the pipeline limits
func New(cfg *config.PipelineConfig) *Validator {
	return &Validator{
		maxPostsPerUnit:  cfg.MaxPostsPerUnit,
		maxTagsPerUnit:   cfg.MaxTagsPerUnit,
		maxContentLength: cfg.MaxContentLength,
		policy:           bluemonday.StrictPolicy(),
	}
}

// ValidateUnit validates one content unit. An empty result means the unit is
// structurally sound, within bounds, free of suspicious content and free of
// internal slug collisions.
func (v *Validator) ValidateUnit(unit *models.ContentUnit) []ValidationError {
	var errors []ValidationError

	// Category
	if unit.Category == "" {
		errors = append(errors, ValidationError{Field: "category", Message: "category is required"})
	} else if !slugRegex.MatchString(unit.Category) || len(unit.Category) > maxSlugLength {
		errors = append(errors, ValidationError{Field: "category", Message: "category must be a lowercase slug (letters, digits, hyphen, underscore)", Value: unit.Category})
	}

	// Tags
	if len(unit.Tags) > v.maxTagsPerUnit {
		errors = append(errors, ValidationError{
			Field:   "tags",
			Message: fmt.Sprintf("unit exceeds maximum of %d tags (has %d)", v.maxTagsPerUnit, len(unit.Tags)),
		})
	}
	tagSlugs := make(map[string]bool, len(unit.Tags))
	for i, tag := range unit.Tags {
		field := fmt.Sprintf("tags[%d]", i)
		errors = append(errors, v.validateTag(field, &tag)...)
		if tag.Slug != "" {
			if tagSlugs[tag.Slug] {
				errors = append(errors, ValidationError{Field: field + ".slug", Message: "duplicate tag slug within unit", Value: tag.Slug})
			}
			tagSlugs[tag.Slug] = true
		}
	}

	// Posts
	if len(unit.Posts) == 0 {
		errors = append(errors, ValidationError{Field: "posts", Message: "at least one post is required"})
	}
	if len(unit.Posts) > v.maxPostsPerUnit {
		errors = append(errors, ValidationError{
			Field:   "posts",
			Message: fmt.Sprintf("unit exceeds maximum of %d posts (has %d)", v.maxPostsPerUnit, len(unit.Posts)),
		})
	}
	postSlugs := make(map[string]bool, len(unit.Posts))
	for i, post := range unit.Posts {
		field := fmt.Sprintf("posts[%d]", i)
		errors = append(errors, v.validatePost(field, &post)...)
		if post.Slug != "" {
			if postSlugs[post.Slug] {
				errors = append(errors, ValidationError{Field: field + ".slug", Message: "duplicate post slug within unit", Value: post.Slug})
			}
			postSlugs[post.Slug] = true
		}
	}

	return errors
}

// validateTag checks one tag descriptor
func (v *Validator) validateTag(field string, tag *models.TagDescriptor) []ValidationError {
	var errors []ValidationError

	if tag.Slug == "" {
		errors = append(errors, ValidationError{Field: field + ".slug", Message: "tag slug is required"})
	} else if !slugRegex.MatchString(tag.Slug) || len(tag.Slug) > maxSlugLength {
		errors = append(errors, ValidationError{Field: field + ".slug", Message: "tag slug must be a lowercase slug of at most 50 characters", Value: tag.Slug})
	}

	if tag.Name == "" {
		errors = append(errors, ValidationError{Field: field + ".name", Message: "tag name is required"})
	} else if !tagNameRegex.MatchString(tag.Name) || len(tag.Name) > maxTagNameLength {
		errors = append(errors, ValidationError{Field: field + ".name", Message: "tag name contains disallowed characters or exceeds 50 characters", Value: tag.Name})
	}

	return errors
}

// validatePost checks one post descriptor, including the suspicious-content
// filter on every free-text field
func (v *Validator) validatePost(field string, post *models.PostDescriptor) []ValidationError {
	var errors []ValidationError

	if post.Slug == "" {
		errors = append(errors, ValidationError{Field: field + ".slug", Message: "post slug is required"})
	} else if !slugRegex.MatchString(post.Slug) || len(post.Slug) > maxSlugLength {
		errors = append(errors, ValidationError{Field: field + ".slug", Message: "post slug must be a lowercase slug of at most 50 characters", Value: post.Slug})
	}

	// Free-text limits count characters, not bytes
	if post.Title == "" {
		errors = append(errors, ValidationError{Field: field + ".title", Message: "title is required"})
	} else if utf8.RuneCountInString(post.Title) > maxTitleLength {
		errors = append(errors, ValidationError{Field: field + ".title", Message: fmt.Sprintf("title exceeds %d characters", maxTitleLength)})
	}

	if utf8.RuneCountInString(post.Description) > maxDescriptionLength {
		errors = append(errors, ValidationError{Field: field + ".description", Message: fmt.Sprintf("description exceeds %d characters", maxDescriptionLength)})
	}

	if post.Content == "" {
		errors = append(errors, ValidationError{Field: field + ".content", Message: "content is required"})
	} else if utf8.RuneCountInString(post.Content) > v.maxContentLength {
		errors = append(errors, ValidationError{Field: field + ".content", Message: fmt.Sprintf("content exceeds maximum of %d characters", v.maxContentLength)})
	}

	if post.Status == "" {
		errors = append(errors, ValidationError{Field: field + ".status", Message: "status is required"})
	} else if !models.ValidPostStatuses[post.Status] {
		errors = append(errors, ValidationError{
			Field:   field + ".status",
			Message: "invalid status, must be one of: APPROVED, PENDING_APPROVAL, REJECTED",
			Value:   string(post.Status),
		})
	}

	// Each free-text field is checked independently so the rejection reason
	// names the offending field
	errors = append(errors, checkSuspicious(field+".title", post.Title)...)
	errors = append(errors, checkSuspicious(field+".description", post.Description)...)
	errors = append(errors, checkSuspicious(field+".content", post.Content)...)
	errors = append(errors, checkSuspicious(field+".mediaUrl", post.MediaURL)...)

	return errors
}

// checkSuspicious matches one field value against the dangerous-pattern set
func checkSuspicious(field, value string) []ValidationError {
	if value == "" {
		return nil
	}
	var errors []ValidationError
	for _, p := range suspiciousPatterns {
		if p.re.MatchString(value) {
			errors = append(errors, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("suspicious content rejected: %s", p.label),
				Security: true,
			})
		}
	}
	return errors
}

// Sanitize strips all markup from the unit's free-text fields. Applied only
// after ValidateUnit passes; units matching the suspicious-pattern set never
// reach this step.
func (v *Validator) Sanitize(unit *models.ContentUnit) {
	for i := range unit.Tags {
		unit.Tags[i].Name = v.policy.Sanitize(unit.Tags[i].Name)
	}
	for i := range unit.Posts {
		unit.Posts[i].Title = v.policy.Sanitize(unit.Posts[i].Title)
		unit.Posts[i].Description = v.policy.Sanitize(unit.Posts[i].Description)
		unit.Posts[i].Content = v.policy.Sanitize(unit.Posts[i].Content)
	}
}
