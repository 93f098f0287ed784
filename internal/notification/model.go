package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app message for one recipient. Rows are append-only
// except for the read flag.
type Notification struct {
	ID              uuid.UUID
	RecipientUserID uuid.UUID
	Message         string
	Read            bool
	CreatedAt       time.Time
}
