package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateUsername is returned when an admin username is already taken.
var ErrDuplicateUsername = errors.New("username already exists")

// SQLiteAdminStore implements AdminStore backed by SQLite.
type SQLiteAdminStore struct {
	db *sql.DB
}

// NewSQLiteAdminStore returns a new SQLiteAdminStore.
func NewSQLiteAdminStore(db *sql.DB) *SQLiteAdminStore {
	return &SQLiteAdminStore{db: db}
}

// GetByUsername returns the admin with the given username, or ErrNotFound.
func (s *SQLiteAdminStore) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM admins WHERE username = ?",
		username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying admin %q: %w", username, err)
	}
	return &a, nil
}

// Create inserts a new admin account.
func (s *SQLiteAdminStore) Create(ctx context.Context, a *Admin) error {
	a.CreatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO admins (username, password_hash, created_at) VALUES (?, ?, ?)",
		a.Username, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("inserting admin: %w", err)
	}

	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading admin id: %w", err)
	}
	return nil
}
