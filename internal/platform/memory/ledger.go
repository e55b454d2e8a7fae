package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type ledgerStore struct{ base }

var _ store.LedgerStore = (*ledgerStore)(nil)

func (s *ledgerStore) Create(ctx context.Context, entry *domain.Transaction) (bool, error) {
	if err := entry.Validate(); err != nil {
		return false, err
	}
	created := false
	err := s.write(OpLedgerCreate, func(d *data) error {
		for _, t := range d.transactions {
			if t.PaymentReference == entry.PaymentReference {
				return nil
			}
		}
		if _, ok := d.users[entry.UserID]; !ok {
			return fmt.Errorf("%w: ledger entry references a missing user or course", store.ErrInvalidEntity)
		}
		if _, ok := d.courses[entry.CourseID]; !ok {
			return fmt.Errorf("%w: ledger entry references a missing user or course", store.ErrInvalidEntity)
		}
		d.transactions[entry.ID] = *entry
		created = true
		return nil
	})
	return created, err
}

func (s *ledgerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.read(func(d *data) error {
		t, ok := d.transactions[id]
		if !ok {
			return store.ErrTransactionNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (s *ledgerStore) GetByPaymentReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.read(func(d *data) error {
		for _, t := range d.transactions {
			if t.PaymentReference == reference {
				t := t
				out = &t
				return nil
			}
		}
		return store.ErrTransactionNotFound
	})
	return out, err
}

func (s *ledgerStore) Find(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	if filter.CourseIDs != nil && len(filter.CourseIDs) == 0 {
		return []*domain.Transaction{}, nil
	}
	courses := make(map[uuid.UUID]bool, len(filter.CourseIDs))
	for _, id := range filter.CourseIDs {
		courses[id] = true
	}

	out := []*domain.Transaction{}
	err := s.read(func(d *data) error {
		for _, t := range d.transactions {
			switch {
			case filter.CourseIDs != nil && !courses[t.CourseID],
				filter.UserID != uuid.Nil && t.UserID != filter.UserID,
				filter.Status != "" && t.Status != filter.Status,
				!filter.From.IsZero() && t.CreatedAt.Before(filter.From),
				!filter.To.IsZero() && !t.CreatedAt.Before(filter.To):
				continue
			}
			t := t
			out = append(out, &t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		out = page(out, filter.Limit, filter.Offset)
	}
	return out, nil
}
