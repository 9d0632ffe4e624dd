package storage

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateEmail is returned when a subscriber email is already on the list.
var ErrDuplicateEmail = errors.New("email already subscribed")

// Subscriber is a mailing-list member. Emails are stored trimmed and
// lowercased so the unique index also serves as case-insensitive dedup.
type Subscriber struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriberStore defines the interface for mailing-list persistence.
type SubscriberStore interface {
	List(ctx context.Context) ([]Subscriber, error)
	Add(ctx context.Context, email string) (*Subscriber, error)
	Delete(ctx context.Context, id int64) error
}
