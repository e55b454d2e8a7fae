package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// ReviewStore defines the interface for review persistence.
type ReviewStore interface {
	// Create saves a new review.
	// Returns ErrReviewExists if the user already has a live review of the course.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review, including soft-deleted ones.
	// Returns ErrReviewNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error)

	// GetLive returns the user's non-deleted review of the course.
	// Returns ErrReviewNotFound if there is none.
	GetLive(ctx context.Context, userID, courseID uuid.UUID) (*domain.Review, error)

	// Update replaces rating, comment and the deleted flag.
	Update(ctx context.Context, review *domain.Review) error

	// ListByCourse returns live reviews of a course, newest first, and their total.
	ListByCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]*domain.Review, int, error)

	// ListByUser returns the user's live reviews, newest first, and their total.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Review, int, error)
}
