package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// UserFilter narrows a user listing. Zero values do not filter.
type UserFilter struct {
	Role domain.Role
	// Search matches name or e-mail case-insensitively.
	Search string
	Limit  int
	Offset int
}

// UserStore persists accounts. E-mail addresses are unique after normalisation.
type UserStore interface {
	// Create saves a new user, whose password must already be hashed.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their (normalized) email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update replaces the stored profile, roles, flags and password hash.
	// Returns ErrUserNotFound if the user does not exist.
	// Returns ErrEmailExists if updating to an email that already exists.
	Update(ctx context.Context, user *domain.User) error

	// ListByRole returns all users holding the given role, oldest first.
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)

	// List returns the users matching filter, newest first, and the total match count.
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int, error)
}
