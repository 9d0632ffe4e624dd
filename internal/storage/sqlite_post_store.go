package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLitePostStore implements PostStore backed by SQLite.
type SQLitePostStore struct {
	db *sql.DB
}

// NewSQLitePostStore returns a new SQLitePostStore.
func NewSQLitePostStore(db *sql.DB) *SQLitePostStore {
	return &SQLitePostStore{db: db}
}

const postColumns = "id, title, slug, cover_image, excerpt, content, tags, draft, published_at, created_at, updated_at"

// List returns posts ordered by publish date descending. Drafts are
// included only when includeDrafts is true (admin view).
func (s *SQLitePostStore) List(ctx context.Context, includeDrafts bool) ([]Post, error) {
	q := "SELECT " + postColumns + " FROM posts"
	if !includeDrafts {
		q += " WHERE draft = 0"
	}
	q += " ORDER BY COALESCE(published_at, created_at) DESC"

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// Get returns the post with the given id, or ErrNotFound.
func (s *SQLitePostStore) Get(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	return scanPost(row)
}

// GetBySlug returns the post with the given slug, or ErrNotFound.
func (s *SQLitePostStore) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE slug = ?", slug)
	return scanPost(row)
}

// Create inserts a new post and sets its ID and timestamps.
func (s *SQLitePostStore) Create(ctx context.Context, p *Post) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (title, slug, cover_image, excerpt, content, tags, draft, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.CoverImage, p.Excerpt, p.Content, string(tags),
		boolToInt(p.Draft), p.PublishedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("inserting post: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading post id: %w", err)
	}
	return nil
}

// Update rewrites all mutable fields of the post identified by p.ID.
func (s *SQLitePostStore) Update(ctx context.Context, p *Post) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title = ?, slug = ?, cover_image = ?, excerpt = ?, content = ?,
		    tags = ?, draft = ?, published_at = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Slug, p.CoverImage, p.Excerpt, p.Content, string(tags),
		boolToInt(p.Draft), p.PublishedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("updating post %d: %w", p.ID, err)
	}
	return checkAffected(res)
}

// Delete removes the post with the given id.
func (s *SQLitePostStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	return checkAffected(res)
}

// ListDuePublications returns scheduled drafts whose publish time has passed.
func (s *SQLitePostStore) ListDuePublications(ctx context.Context, now time.Time) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE draft = 1 AND published_at IS NOT NULL AND published_at <= ?
		ORDER BY published_at`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying due publications: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// MarkPublished clears the draft flag on the given post.
func (s *SQLitePostStore) MarkPublished(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET draft = 0, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking post %d published: %w", id, err)
	}
	return checkAffected(res)
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPostFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post rows: %w", err)
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

func scanPost(row *sql.Row) (*Post, error) {
	p, err := scanPostFields(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanPostFields(scan func(dest ...any) error) (*Post, error) {
	var (
		p     Post
		tags  string
		draft int
	)
	if err := scan(&p.ID, &p.Title, &p.Slug, &p.CoverImage, &p.Excerpt,
		&p.Content, &tags, &draft, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning post row: %w", err)
	}
	p.Draft = draft != 0
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
