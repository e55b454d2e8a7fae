// Package catalog manages courses and their sections and lectures.
package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

var (
	// ErrNotInstructor is returned when a user without the instructor role creates a course.
	ErrNotInstructor = fmt.Errorf("%w: instructor role required", domain.ErrUnauthorized)

	// ErrNotOwner is returned when someone other than the owner or an admin changes a course.
	ErrNotOwner = fmt.Errorf("%w: course belongs to another instructor", domain.ErrUnauthorized)

	// ErrAdminOnly is returned for moderation actions attempted by non-admins.
	ErrAdminOnly = fmt.Errorf("%w: admin role required", domain.ErrUnauthorized)

	// ErrLectureLocked is returned when reading a lecture of a course the viewer has not bought.
	ErrLectureLocked = fmt.Errorf("%w: enroll in the course to watch this lecture", domain.ErrUnauthorized)
)

// Notifier creates in-app notifications.
type Notifier interface {
	NotifyUsers(ctx context.Context, recipients []uuid.UUID, typ domain.NotificationType, message string, actorID, courseID, webinarID *uuid.UUID)
}

// Service implements the catalog operations.
type Service struct {
	uow      store.UnitOfWork
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a catalog service.
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
	return &Service{uow: uow, notifier: notifier, logger: logger.With(slog.String("component", "catalog_service"))}
}

// liveCourse loads a course that has not been deleted.
func liveCourse(ctx context.Context, repos store.Repositories, id uuid.UUID, lock bool) (*domain.Course, error) {
	get := repos.Courses.GetByID
	if lock {
		get = repos.Courses.GetByIDForUpdate
	}
	c, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Deleted {
		return nil, store.ErrCourseNotFound
	}
	return c, nil
}

// managedCourse loads and locks a live course the actor may change.
func managedCourse(ctx context.Context, repos store.Repositories, actor domain.Actor, id uuid.UUID) (*domain.Course, error) {
	c, err := liveCourse(ctx, repos, id, true)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(c.InstructorID) {
		return nil, ErrNotOwner
	}
	return c, nil
}

func validation(field string, err error) error {
	return domain.NewValidationError(field, err.Error(), err)
}
