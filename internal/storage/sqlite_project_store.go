package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteProjectStore implements ProjectStore backed by SQLite.
type SQLiteProjectStore struct {
	db *sql.DB
}

// NewSQLiteProjectStore returns a new SQLiteProjectStore.
func NewSQLiteProjectStore(db *sql.DB) *SQLiteProjectStore {
	return &SQLiteProjectStore{db: db}
}

const projectColumns = "id, title, description, image_url, technologies, live_url, github_url, created_at"

// List returns all projects, newest first.
func (s *SQLiteProjectStore) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProjectFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}
	if projects == nil {
		projects = []Project{}
	}
	return projects, nil
}

// Get returns the project with the given id, or ErrNotFound.
func (s *SQLiteProjectStore) Get(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	p, err := scanProjectFields(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Create inserts a new project and sets its ID.
func (s *SQLiteProjectStore) Create(ctx context.Context, p *Project) error {
	tech, err := json.Marshal(p.Technologies)
	if err != nil {
		return fmt.Errorf("encoding technologies: %w", err)
	}

	p.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (title, description, image_url, technologies, live_url, github_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.ImageURL, string(tech), p.LiveURL, p.GithubURL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading project id: %w", err)
	}
	return nil
}

// Update rewrites all mutable fields of the project identified by p.ID.
func (s *SQLiteProjectStore) Update(ctx context.Context, p *Project) error {
	tech, err := json.Marshal(p.Technologies)
	if err != nil {
		return fmt.Errorf("encoding technologies: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET title = ?, description = ?, image_url = ?, technologies = ?, live_url = ?, github_url = ?
		WHERE id = ?`,
		p.Title, p.Description, p.ImageURL, string(tech), p.LiveURL, p.GithubURL, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project %d: %w", p.ID, err)
	}
	return checkAffected(res)
}

// Delete removes the project with the given id.
func (s *SQLiteProjectStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	return checkAffected(res)
}

func scanProjectFields(scan func(dest ...any) error) (*Project, error) {
	var (
		p    Project
		tech string
	)
	if err := scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &tech,
		&p.LiveURL, &p.GithubURL, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scanning project row: %w", err)
	}
	if err := json.Unmarshal([]byte(tech), &p.Technologies); err != nil {
		return nil, fmt.Errorf("decoding technologies: %w", err)
	}
	return &p, nil
}
