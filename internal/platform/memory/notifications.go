package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type notificationStore struct{ base }

var _ store.NotificationStore = (*notificationStore)(nil)

func (s *notificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	return s.write(OpNotificationWrite, func(d *data) error {
		if _, ok := d.notifications[n.ID]; ok {
			return store.ErrDuplicate
		}
		d.notifications[n.ID] = *n
		return nil
	})
}

func (s *notificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var out *domain.Notification
	err := s.read(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok {
			return store.ErrNotificationNotFound
		}
		out = &n
		return nil
	})
	return out, err
}

func (s *notificationStore) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]*domain.Notification, int, error) {
	return s.list(func(n domain.Notification) bool {
		return n.RecipientID == recipientID && (!unreadOnly || !n.Read)
	}, limit, offset)
}

func (s *notificationStore) ListAll(ctx context.Context, limit, offset int) ([]*domain.Notification, int, error) {
	return s.list(func(domain.Notification) bool { return true }, limit, offset)
}

func (s *notificationStore) list(match func(domain.Notification) bool, limit, offset int) ([]*domain.Notification, int, error) {
	out := []*domain.Notification{}
	err := s.read(func(d *data) error {
		for _, n := range d.notifications {
			if match(n) {
				n := n
				out = append(out, &n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), len(out), nil
}

func (s *notificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.read(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok {
			return store.ErrNotificationNotFound
		}
		n.Read = true
		d.notifications[id] = n
		return nil
	})
}

func (s *notificationStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	changed := 0
	err := s.read(func(d *data) error {
		for id, n := range d.notifications {
			if n.RecipientID == recipientID && !n.Read {
				n.Read = true
				d.notifications[id] = n
				changed++
			}
		}
		return nil
	})
	return changed, err
}
