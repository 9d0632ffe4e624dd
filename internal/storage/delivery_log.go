package storage

import (
	"context"
	"time"
)

// DeliveryLogEntry records the aggregate outcome of one notification batch.
type DeliveryLogEntry struct {
	ID         int64     `json:"id"`
	EntityKind string    `json:"entityKind"` // "post" or "project"
	EntityID   int64     `json:"entityId"`
	Subject    string    `json:"subject"`
	Recipients int       `json:"recipients"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Status     string    `json:"status"` // "sent", "partial" or "failed"
	ErrorMsg   string    `json:"errorMsg,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DeliveryLogStore defines the interface for delivery-log persistence.
type DeliveryLogStore interface {
	Log(ctx context.Context, entry DeliveryLogEntry) error
	List(ctx context.Context, limit int) ([]DeliveryLogEntry, error)
}
