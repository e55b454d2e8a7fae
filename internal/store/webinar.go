package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// WebinarStore persists webinars and their watcher sets.
type WebinarStore interface {
	Create(ctx context.Context, w *domain.Webinar) error

	// GetByID returns ErrWebinarNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Webinar, error)

	Update(ctx context.Context, w *domain.Webinar) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListUpcoming returns webinars starting at or after from, soonest first.
	ListUpcoming(ctx context.Context, from time.Time, limit, offset int) ([]*domain.Webinar, error)

	// ListDueForReminder returns un-reminded webinars starting within [from, to).
	ListDueForReminder(ctx context.Context, from, to time.Time) ([]*domain.Webinar, error)

	// MarkReminderSent flags the webinar as reminded.
	MarkReminderSent(ctx context.Context, id uuid.UUID) error

	// AddWatcher registers the user. It reports false when already registered.
	AddWatcher(ctx context.Context, webinarID, userID uuid.UUID) (bool, error)

	ListWatcherIDs(ctx context.Context, webinarID uuid.UUID) ([]uuid.UUID, error)
}
