package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
)

// TransactionFilter selects ledger entries. Zero values do not filter, except
// that a non-nil empty CourseIDs slice matches nothing.
type TransactionFilter struct {
	CourseIDs []uuid.UUID
	UserID    uuid.UUID
	Status    domain.TransactionStatus
	// From and To bound CreatedAt as [From, To).
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// LedgerStore persists the immutable transaction ledger.
type LedgerStore interface {
	// Create inserts the entry unless one with the same payment reference already exists.
	// A repeated reference is not an error: created is false and nothing is written.
	Create(ctx context.Context, entry *domain.Transaction) (created bool, err error)

	// GetByID returns ErrTransactionNotFound if the entry does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)

	// GetByPaymentReference returns ErrTransactionNotFound if no entry has the reference.
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// Find returns matching entries ordered by CreatedAt ascending.
	Find(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
}
