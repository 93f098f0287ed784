package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	CreateBatch(ctx context.Context, ns []Notification) error

	// ListByUser returns the recipient's notifications, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error)

	// MarkRead flips the read flag; the userID guard keeps recipients from
	// acknowledging each other's messages.
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}
