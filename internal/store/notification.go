package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// ListForRecipient returns the recipient's notifications, newest first, and their total.
	ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*domain.Notification, int, error)

	// ListAll returns every notification, newest first, and the total.
	ListAll(ctx context.Context, limit, offset int) ([]*domain.Notification, int, error)

	// MarkRead flags one notification as read.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead flags every unread notification of the recipient and returns how many changed.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error)
}
