package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type webinarStore struct{ base }

var _ store.WebinarStore = (*webinarStore)(nil)

func (s *webinarStore) Create(ctx context.Context, w *domain.Webinar) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.webinars[w.ID]; ok {
			return store.ErrDuplicate
		}
		d.webinars[w.ID] = *w
		return nil
	})
}

func (s *webinarStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Webinar, error) {
	var out *domain.Webinar
	err := s.read(func(d *data) error {
		w, ok := d.webinars[id]
		if !ok {
			return store.ErrWebinarNotFound
		}
		w.WatcherCount = len(d.watchers[id])
		out = &w
		return nil
	})
	return out, err
}

func (s *webinarStore) Update(ctx context.Context, w *domain.Webinar) error {
	if err := w.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.webinars[w.ID]; !ok {
			return store.ErrWebinarNotFound
		}
		d.webinars[w.ID] = *w
		return nil
	})
}

func (s *webinarStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.read(func(d *data) error {
		if _, ok := d.webinars[id]; !ok {
			return store.ErrWebinarNotFound
		}
		delete(d.webinars, id)
		delete(d.watchers, id)
		return nil
	})
}

func (s *webinarStore) ListUpcoming(ctx context.Context, from time.Time, limit, offset int) ([]*domain.Webinar, error) {
	out, err := s.list(func(w domain.Webinar) bool { return !w.StartsAt.Before(from) })
	if err != nil {
		return nil, err
	}
	return page(out, limit, offset), nil
}

func (s *webinarStore) ListDueForReminder(ctx context.Context, from, to time.Time) ([]*domain.Webinar, error) {
	return s.list(func(w domain.Webinar) bool {
		return !w.ReminderSent && !w.StartsAt.Before(from) && w.StartsAt.Before(to)
	})
}

func (s *webinarStore) list(match func(domain.Webinar) bool) ([]*domain.Webinar, error) {
	out := []*domain.Webinar{}
	err := s.read(func(d *data) error {
		for id, w := range d.webinars {
			if match(w) {
				w := w
				w.WatcherCount = len(d.watchers[id])
				out = append(out, &w)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, err
}

func (s *webinarStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return s.read(func(d *data) error {
		w, ok := d.webinars[id]
		if !ok {
			return store.ErrWebinarNotFound
		}
		w.ReminderSent = true
		w.UpdatedAt = time.Now().UTC()
		d.webinars[id] = w
		return nil
	})
}

func (s *webinarStore) AddWatcher(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	var added bool
	err := s.read(func(d *data) error {
		if _, ok := d.webinars[webinarID]; !ok {
			return store.ErrWebinarNotFound
		}
		added = addEdge(d.watchers, webinarID, userID)
		return nil
	})
	return added, err
}

func (s *webinarStore) ListWatcherIDs(ctx context.Context, webinarID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.read(func(d *data) error {
		ids = edgeIDs(d.watchers[webinarID])
		return nil
	})
	return ids, err
}
