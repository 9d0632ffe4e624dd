package storage

import (
	"context"
	"time"
)

// Admin is a CMS account. Only password hashes are ever stored.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// AdminStore defines the interface for admin account persistence.
type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
}
