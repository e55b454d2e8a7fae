// Package review maintains course reviews together with each course's
// rating aggregate. Every review write and the matching aggregate update
// commit in one transaction with the course row locked.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

var (
	// ErrDuplicateReview is returned when the user already has a live review of the course.
	ErrDuplicateReview = store.ErrReviewExists

	// ErrNotAuthor is returned when someone other than the author edits a review.
	ErrNotAuthor = fmt.Errorf("%w: review belongs to another user", domain.ErrUnauthorized)
)

// Notifier creates in-app notifications.
type Notifier interface {
	NotifyUsers(ctx context.Context, recipients []uuid.UUID, typ domain.NotificationType, message string, actorID, courseID, webinarID *uuid.UUID)
}

// Outcome is a written review and the course aggregate after the write.
type Outcome struct {
	Review *domain.Review          `json:"review"`
	Rating domain.RatingAggregate `json:"rating"`
}

// EditInput holds the fields to change; nil fields are left as they are.
type EditInput struct {
	Rating  *int
	Comment *string
}

// Service implements the review operations.
type Service struct {
	uow      store.UnitOfWork
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a review service.
func NewService(uow store.UnitOfWork, notifier Notifier, logger *slog.Logger) *Service {
	if uow == nil {
		panic("unit of work cannot be nil")
	}
	if notifier == nil {
		panic("notifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, notifier: notifier, logger: logger.With(slog.String("component", "review_service"))}
}

// AddReview records the user's review and folds its rating into the course aggregate.
func (s *Service) AddReview(ctx context.Context, userID, courseID uuid.UUID, rating int, comment string) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateRating(rating); err != nil {
		return nil, domain.NewValidationError("rating", err.Error(), err)
	}
	review, err := domain.NewReview(courseID, userID, rating, comment)
	if err != nil {
		return nil, domain.NewValidationError("", err.Error(), err)
	}

	var (
		out    Outcome
		course *domain.Course
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := repos.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		c, err := lockCourse(ctx, repos, courseID)
		if err != nil {
			return err
		}
		course = c
		if err := repos.Reviews.Create(ctx, review); err != nil {
			return err
		}
		agg, err := course.Rating.Add(rating)
		if err != nil {
			return err
		}
		if err := repos.Courses.UpdateRating(ctx, courseID, agg); err != nil {
			return err
		}
		out = Outcome{Review: review, Rating: agg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("review added",
		slog.String("review_id", review.ID.String()),
		slog.String("course_id", courseID.String()),
		slog.Int("rating", rating),
		slog.Int("review_count", out.Rating.Count))

	if course.InstructorID != userID {
		actor, cid := userID, courseID
		s.notifier.NotifyUsers(ctx, []uuid.UUID{course.InstructorID}, domain.NotifyReview,
			fmt.Sprintf("%s received a new %d-star review", course.Title, rating), &actor, &cid, nil)
	}
	return &out, nil
}

// EditReview changes the author's review. The aggregate is only touched
// when the rating changes, and then exactly: the old rating is swapped for
// the new one in the stored sum.
func (s *Service) EditReview(ctx context.Context, actorID, reviewID uuid.UUID, in EditInput) (*Outcome, error) {
	if in.Rating != nil {
		if err := domain.ValidateRating(*in.Rating); err != nil {
			return nil, domain.NewValidationError("rating", err.Error(), err)
		}
	}

	var out Outcome
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		review, err := liveReview(ctx, repos, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != actorID {
			return ErrNotAuthor
		}
		course, err := lockCourse(ctx, repos, review.CourseID)
		if err != nil {
			return err
		}

		agg := course.Rating
		if in.Rating != nil && *in.Rating != review.Rating {
			if agg, err = agg.Replace(review.Rating, *in.Rating); err != nil {
				return err
			}
			review.Rating = *in.Rating
			if err := repos.Courses.UpdateRating(ctx, course.ID, agg); err != nil {
				return err
			}
		}
		if in.Comment != nil {
			review.Comment = strings.TrimSpace(*in.Comment)
		}
		review.UpdatedAt = time.Now().UTC()
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return err
		}
		out = Outcome{Review: review, Rating: agg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("review edited",
		slog.String("review_id", reviewID.String()),
		slog.Int("rating", out.Review.Rating))
	return &out, nil
}

// DeleteReview soft-deletes a review and removes its rating from the
// aggregate. Authors and admins may delete.
func (s *Service) DeleteReview(ctx context.Context, actor domain.Actor, reviewID uuid.UUID) (domain.RatingAggregate, error) {
	var agg domain.RatingAggregate
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		review, err := liveReview(ctx, repos, reviewID)
		if err != nil {
			return err
		}
		if !actor.CanManage(review.UserID) {
			return ErrNotAuthor
		}
		course, err := lockCourse(ctx, repos, review.CourseID)
		if err != nil {
			return err
		}

		review.Deleted = true
		review.UpdatedAt = time.Now().UTC()
		if err := repos.Reviews.Update(ctx, review); err != nil {
			return err
		}
		agg = course.Rating.Remove(review.Rating)
		return repos.Courses.UpdateRating(ctx, course.ID, agg)
	})
	if err != nil {
		return domain.RatingAggregate{}, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("review deleted",
		slog.String("review_id", reviewID.String()),
		slog.String("actor_id", actor.ID.String()),
		slog.Int("review_count", agg.Count))
	return agg, nil
}

// GetReview returns a live review.
func (s *Service) GetReview(ctx context.Context, reviewID uuid.UUID) (*domain.Review, error) {
	return liveReview(ctx, s.uow.Repositories(), reviewID)
}

// ListReviews returns a page of the course's live reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, courseID uuid.UUID, page, limit int) (domain.Page[*domain.Review], error) {
	repos := s.uow.Repositories()
	if _, err := repos.Courses.GetByID(ctx, courseID); err != nil {
		return domain.Page[*domain.Review]{}, err
	}
	page, limit, offset := domain.NormalizePage(page, limit)
	items, total, err := repos.Reviews.ListByCourse(ctx, courseID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Review]{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

// ListUserReviews returns a page of the user's live reviews, newest first.
func (s *Service) ListUserReviews(ctx context.Context, userID uuid.UUID, page, limit int) (domain.Page[*domain.Review], error) {
	repos := s.uow.Repositories()
	if _, err := repos.Users.GetByID(ctx, userID); err != nil {
		return domain.Page[*domain.Review]{}, err
	}
	page, limit, offset := domain.NormalizePage(page, limit)
	items, total, err := repos.Reviews.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return domain.Page[*domain.Review]{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

func liveReview(ctx context.Context, repos store.Repositories, id uuid.UUID) (*domain.Review, error) {
	review, err := repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review.Deleted {
		return nil, store.ErrReviewNotFound
	}
	return review, nil
}

func lockCourse(ctx context.Context, repos store.Repositories, id uuid.UUID) (*domain.Course, error) {
	course, err := repos.Courses.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if course.Deleted {
		return nil, store.ErrCourseNotFound
	}
	return course, nil
}
