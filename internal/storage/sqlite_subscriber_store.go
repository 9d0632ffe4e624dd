package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteSubscriberStore implements SubscriberStore backed by SQLite.
type SQLiteSubscriberStore struct {
	db *sql.DB
}

// NewSQLiteSubscriberStore returns a new SQLiteSubscriberStore.
func NewSQLiteSubscriberStore(db *sql.DB) *SQLiteSubscriberStore {
	return &SQLiteSubscriberStore{db: db}
}

// List returns all subscribers in signup order.
func (s *SQLiteSubscriberStore) List(ctx context.Context) ([]Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, email, created_at FROM subscribers ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("querying subscribers: %w", err)
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var sub Subscriber
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning subscriber row: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriber rows: %w", err)
	}
	if subs == nil {
		subs = []Subscriber{}
	}
	return subs, nil
}

// Add inserts a new subscriber. The email is trimmed and lowercased before
// insert; a conflict with the unique index returns ErrDuplicateEmail.
func (s *SQLiteSubscriberStore) Add(ctx context.Context, email string) (*Subscriber, error) {
	sub := Subscriber{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO subscribers (email, created_at) VALUES (?, ?)",
		sub.Email, sub.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("inserting subscriber: %w", err)
	}

	sub.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading subscriber id: %w", err)
	}
	return &sub, nil
}

// Delete removes the subscriber with the given id.
func (s *SQLiteSubscriberStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM subscribers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting subscriber %d: %w", id, err)
	}
	return checkAffected(res)
}
