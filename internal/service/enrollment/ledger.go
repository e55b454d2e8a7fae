package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// LedgerQuery narrows a ledger listing. From and To bound CreatedAt as [From, To).
type LedgerQuery struct {
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (q LedgerQuery) filter() store.TransactionFilter {
	return store.TransactionFilter{From: q.From, To: q.To, Limit: q.Limit, Offset: q.Offset}
}

// Transactions returns every ledger entry.
func (s *Service) Transactions(ctx context.Context, q LedgerQuery) ([]*domain.Transaction, error) {
	out, err := s.uow.Repositories().Ledger.Find(ctx, q.filter())
	if err != nil {
		return nil, s.wrapStoreError("list transactions", err)
	}
	return out, nil
}

// UserTransactions returns the payments made by a user.
func (s *Service) UserTransactions(ctx context.Context, userID uuid.UUID, q LedgerQuery) ([]*domain.Transaction, error) {
	repos := s.uow.Repositories()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return nil, s.wrapStoreError("list user transactions", err)
	}
	f := q.filter()
	f.UserID = userID
	out, err := repos.Ledger.Find(ctx, f)
	if err != nil {
		return nil, s.wrapStoreError("list user transactions", err)
	}
	return out, nil
}

// InstructorTransactions returns the payments for courses the instructor uploaded.
func (s *Service) InstructorTransactions(ctx context.Context, instructorID uuid.UUID, q LedgerQuery) ([]*domain.Transaction, error) {
	repos := s.uow.Repositories()
	if _, err := repos.Users.GetByID(ctx, instructorID); err != nil {
		return nil, s.wrapStoreError("list instructor transactions", err)
	}
	courseIDs, err := repos.Courses.ListIDsByInstructor(ctx, instructorID)
	if err != nil {
		return nil, s.wrapStoreError("list instructor transactions", err)
	}
	f := q.filter()
	f.CourseIDs = courseIDs
	out, err := repos.Ledger.Find(ctx, f)
	if err != nil {
		return nil, s.wrapStoreError("list instructor transactions", err)
	}
	return out, nil
}
