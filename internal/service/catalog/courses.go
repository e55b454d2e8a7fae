package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

const slugAttempts = 3

// CourseInput carries the editable course fields. Updates replace all of them.
type CourseInput struct {
	Title       string
	Subtitle    string
	Description string
	Category    string
	SubCategory string
	Language    string
	Level       domain.CourseLevel
	Price       decimal.Decimal
	PlatformFee decimal.Decimal
	Duration    string
}

func (in CourseInput) apply(c *domain.Course) {
	c.Title = strings.TrimSpace(in.Title)
	c.Subtitle = strings.TrimSpace(in.Subtitle)
	c.Description = in.Description
	c.Category = strings.TrimSpace(in.Category)
	c.SubCategory = strings.TrimSpace(in.SubCategory)
	c.Language = strings.TrimSpace(in.Language)
	if in.Level != "" {
		c.Level = in.Level
	}
	c.Price = in.Price
	c.PlatformFee = in.PlatformFee
	c.Duration = strings.TrimSpace(in.Duration)
}

// CourseQuery selects a page of courses.
type CourseQuery struct {
	Category     string
	InstructorID uuid.UUID
	Status       domain.CourseStatus
	Search       string
	Page         int
	Limit        int
}

// CreateCourse adds a pending course owned by the actor.
func (s *Service) CreateCourse(ctx context.Context, actor domain.Actor, in CourseInput) (*domain.Course, error) {
	if !actor.Roles.Has(domain.RoleInstructor) && !actor.IsAdmin() {
		return nil, ErrNotInstructor
	}
	course, err := domain.NewCourse(actor.ID, in.Title, in.Price)
	if err != nil {
		return nil, validation("", err)
	}
	in.apply(course)
	if err := course.Validate(); err != nil {
		return nil, validation("", err)
	}

	err = retrySlug(func(attempt int) error {
		course.Slug = slugFor(course.Title, attempt)
		return s.uow.Repositories().Courses.Create(ctx, course)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("course created",
		slog.String("course_id", course.ID.String()),
		slog.String("instructor_id", actor.ID.String()),
		slog.String("slug", course.Slug))
	return course, nil
}

// UpdateCourse replaces the editable fields of a course. A new title
// gives the course a new slug.
func (s *Service) UpdateCourse(ctx context.Context, actor domain.Actor, id uuid.UUID, in CourseInput) (*domain.Course, error) {
	var out *domain.Course
	err := retrySlug(func(attempt int) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
			c, err := managedCourse(ctx, repos, actor, id)
			if err != nil {
				return err
			}
			if strings.TrimSpace(in.Title) != c.Title {
				c.Slug = slugFor(in.Title, attempt)
			}
			in.apply(c)
			if err := c.Validate(); err != nil {
				return validation("", err)
			}
			c.UpdatedAt = time.Now().UTC()
			out = c
			return repos.Courses.Update(ctx, c)
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCourse soft-deletes a course.
func (s *Service) DeleteCourse(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := managedCourse(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		c.Deleted = true
		c.UpdatedAt = time.Now().UTC()
		return repos.Courses.Update(ctx, c)
	})
	if err != nil {
		return err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("course deleted",
		slog.String("course_id", id.String()),
		slog.String("actor_id", actor.ID.String()))
	return nil
}

// ToggleCourseDisabled hides or shows a course.
func (s *Service) ToggleCourseDisabled(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Course, error) {
	var out *domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := managedCourse(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		c.Disabled = !c.Disabled
		c.UpdatedAt = time.Now().UTC()
		out = c
		return repos.Courses.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleCourseApproval flips a course between approved and cancelled; a
// pending course becomes approved. The instructor is notified.
func (s *Service) ToggleCourseApproval(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Course, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	var out *domain.Course
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		c, err := liveCourse(ctx, repos, id, true)
		if err != nil {
			return err
		}
		c.ToggleApproval()
		out = c
		return repos.Courses.Update(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	typ, verb := domain.NotifyCourseApproved, "approved"
	if out.Status == domain.CourseStatusCancelled {
		typ, verb = domain.NotifyCourseCancelled, "cancelled"
	}
	actorID, courseID := actor.ID, out.ID
	s.notifier.NotifyUsers(ctx, []uuid.UUID{out.InstructorID}, typ,
		fmt.Sprintf("Your course %s was %s", out.Title, verb), &actorID, &courseID, nil)

	logger.FromContextOrDefault(ctx, s.logger).Info("course moderated",
		slog.String("course_id", id.String()),
		slog.String("status", string(out.Status)))
	return out, nil
}

// GetCourse returns a course that has not been deleted.
func (s *Service) GetCourse(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return liveCourse(ctx, s.uow.Repositories(), id, false)
}

// ListCourses returns a page of courses. Only admins, and instructors
// listing their own courses, see unapproved or disabled ones; everyone else
// gets approved, visible courses. viewer is nil for anonymous callers.
func (s *Service) ListCourses(ctx context.Context, viewer *domain.Actor, q CourseQuery) (domain.Page[*domain.Course], error) {
	page, limit, offset := domain.NormalizePage(q.Page, q.Limit)
	filter := store.CourseFilter{
		Category:     strings.TrimSpace(q.Category),
		InstructorID: q.InstructorID,
		Status:       domain.CourseStatusApproved,
		Search:       q.Search,
		Limit:        limit,
		Offset:       offset,
	}
	privileged := viewer != nil && (viewer.IsAdmin() || (q.InstructorID != uuid.Nil && q.InstructorID == viewer.ID))
	if privileged {
		filter.Status = q.Status
		filter.IncludeDisabled = true
	}

	items, total, err := s.uow.Repositories().Courses.List(ctx, filter)
	if err != nil {
		return domain.Page[*domain.Course]{}, fmt.Errorf("failed to list courses: %w", err)
	}
	return domain.NewPage(items, page, limit, total), nil
}

// Categories counts approved courses per category.
func (s *Service) Categories(ctx context.Context) ([]store.CategoryCount, error) {
	return s.uow.Repositories().Courses.CategoryCounts(ctx)
}

// slugFor derives a course slug from its title. Retries after a clash add
// a short random suffix.
func slugFor(title string, attempt int) string {
	base := slug.Make(title)
	if base == "" {
		base = "course"
	}
	if attempt == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

// retrySlug runs save until it stops failing with a slug clash.
func retrySlug(save func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		if err = save(attempt); !errors.Is(err, store.ErrSlugExists) {
			return err
		}
	}
	return err
}
