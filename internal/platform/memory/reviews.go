package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type reviewStore struct{ base }

var _ store.ReviewStore = (*reviewStore)(nil)

func liveReview(d *data, userID, courseID, except uuid.UUID) (domain.Review, bool) {
	for id, r := range d.reviews {
		if id != except && !r.Deleted && r.UserID == userID && r.CourseID == courseID {
			return r, true
		}
	}
	return domain.Review{}, false
}

func (s *reviewStore) Create(ctx context.Context, review *domain.Review) error {
	if err := review.Validate(); err != nil {
		return err
	}
	return s.write(OpReviewCreate, func(d *data) error {
		if _, ok := d.courses[review.CourseID]; !ok {
			return fmt.Errorf("%w: review references a missing user or course", store.ErrInvalidEntity)
		}
		if !review.Deleted {
			if _, ok := liveReview(d, review.UserID, review.CourseID, uuid.Nil); ok {
				return store.ErrReviewExists
			}
		}
		d.reviews[review.ID] = *review
		return nil
	})
}

func (s *reviewStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	var out *domain.Review
	err := s.read(func(d *data) error {
		r, ok := d.reviews[id]
		if !ok {
			return store.ErrReviewNotFound
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *reviewStore) GetLive(ctx context.Context, userID, courseID uuid.UUID) (*domain.Review, error) {
	var out *domain.Review
	err := s.read(func(d *data) error {
		r, ok := liveReview(d, userID, courseID, uuid.Nil)
		if !ok {
			return store.ErrReviewNotFound
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *reviewStore) Update(ctx context.Context, review *domain.Review) error {
	if err := review.Validate(); err != nil {
		return err
	}
	return s.write(OpReviewUpdate, func(d *data) error {
		existing, ok := d.reviews[review.ID]
		if !ok {
			return store.ErrReviewNotFound
		}
		if !review.Deleted {
			if _, ok := liveReview(d, existing.UserID, existing.CourseID, review.ID); ok {
				return store.ErrReviewExists
			}
		}
		existing.Rating = review.Rating
		existing.Comment = review.Comment
		existing.Deleted = review.Deleted
		existing.UpdatedAt = review.UpdatedAt
		d.reviews[review.ID] = existing
		return nil
	})
}

func (s *reviewStore) ListByCourse(ctx context.Context, courseID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	return s.listLive(func(r domain.Review) bool { return r.CourseID == courseID }, limit, offset)
}

func (s *reviewStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Review, int, error) {
	return s.listLive(func(r domain.Review) bool { return r.UserID == userID }, limit, offset)
}

func (s *reviewStore) listLive(match func(domain.Review) bool, limit, offset int) ([]*domain.Review, int, error) {
	live := []*domain.Review{}
	err := s.read(func(d *data) error {
		for _, r := range d.reviews {
			if match(r) && !r.Deleted {
				r := r
				live = append(live, &r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].ID.String() < live[j].ID.String()
		}
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	return page(live, limit, offset), len(live), nil
}
