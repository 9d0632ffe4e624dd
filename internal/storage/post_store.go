package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get operations when no row matches.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSlug is returned when a post slug is already taken.
var ErrDuplicateSlug = errors.New("slug already exists")

// Post is a blog post. Draft posts are hidden from the public API; a draft
// with a future PublishedAt is a scheduled post that the scheduler promotes
// when the time arrives.
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	CoverImage  string     `json:"coverImage"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	Tags        []string   `json:"tags"`
	Draft       bool       `json:"isDraft"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PostStore defines the interface for blog post persistence.
type PostStore interface {
	List(ctx context.Context, includeDrafts bool) ([]Post, error)
	Get(ctx context.Context, id int64) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	Create(ctx context.Context, p *Post) error
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id int64) error
	// ListDuePublications returns draft posts whose PublishedAt is at or
	// before now; the scheduler promotes these to published.
	ListDuePublications(ctx context.Context, now time.Time) ([]Post, error)
	// MarkPublished clears the draft flag.
	MarkPublished(ctx context.Context, id int64) error
}
