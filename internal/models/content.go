package models

import (
	"time"
)

// PostStatus is the moderation lifecycle state of a post
type PostStatus string

const (
	PostStatusApproved        PostStatus = "APPROVED"
	PostStatusPendingApproval PostStatus = "PENDING_APPROVAL"
	PostStatusRejected        PostStatus = "REJECTED"
)

// ValidPostStatuses defines allowed post statuses
var ValidPostStatuses = map[PostStatus]bool{
	PostStatusApproved:        true,
	PostStatusPendingApproval: true,
	PostStatusRejected:        true,
}

// ContentUnit is one submitted batch: a category plus its tags and posts.
// Parsed from untrusted JSON; the validation package decides whether it is
// safe to materialize.
type ContentUnit struct {
	Category string           `json:"category"`
	Tags     []TagDescriptor  `json:"tags"`
	Posts    []PostDescriptor `json:"posts"`
}

// TagDescriptor describes one tag within a content unit
type TagDescriptor struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// PostDescriptor describes one post within a content unit
type PostDescriptor struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	IsPremium   bool       `json:"isPremium"`
	IsPublished bool       `json:"isPublished"`
	IsFeatured  bool       `json:"isFeatured"`
	Status      PostStatus `json:"status"`
	MediaURL    string     `json:"mediaUrl,omitempty"`
}

// Category is a persisted category row
type Category struct {
	ID        string    `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Tag is a persisted tag row
type Tag struct {
	ID        string    `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Post is a persisted post row
type Post struct {
	ID          string     `json:"id" db:"id"`
	Slug        string     `json:"slug" db:"slug"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Content     string     `json:"content" db:"content"`
	CategoryID  string     `json:"category_id" db:"category_id"`
	AuthorID    string     `json:"author_id" db:"author_id"`
	IsPremium   bool       `json:"is_premium" db:"is_premium"`
	IsPublished bool       `json:"is_published" db:"is_published"`
	IsFeatured  bool       `json:"is_featured" db:"is_featured"`
	Status      PostStatus `json:"status" db:"status"`
	MediaURL    string     `json:"media_url,omitempty" db:"media_url"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Author is a persisted author row; runs are always triggered on behalf of
// an existing author.
type Author struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Role string `json:"role" db:"role"`
}
