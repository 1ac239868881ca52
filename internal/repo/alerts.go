package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AlertRecord holds the last-known health and the last time a
// notification was sent for one backend, used to implement
// notification cooldown: a backend flapping faster than the cooldown
// window only gets one DOWN alert per window.
type AlertRecord struct {
	BackendID   uuid.UUID
	LastHealthy bool
	LastSentAt  *time.Time
}

// AlertStore is implemented by a persistence layer to store alert
// cooldown state across restarts.
type AlertStore interface {
	// GetAlert returns nil, nil if there's no record yet.
	GetAlert(ctx context.Context, backendID uuid.UUID) (*AlertRecord, error)
	// SetAlert upserts the record. If sentAt.IsZero() the stored
	// last-sent timestamp is cleared.
	SetAlert(ctx context.Context, backendID uuid.UUID, lastHealthy bool, sentAt time.Time) error
}
