package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

// LectureInput carries the editable lecture fields.
type LectureInput struct {
	Title           string
	Description     string
	VideoURL        string
	DurationSeconds int
	Preview         bool
}

func (in LectureInput) apply(l *domain.Lecture) {
	l.Title = strings.TrimSpace(in.Title)
	l.Description = in.Description
	l.VideoURL = strings.TrimSpace(in.VideoURL)
	l.DurationSeconds = in.DurationSeconds
	l.Preview = in.Preview
}

// AddSection appends a section to the course.
func (s *Service) AddSection(ctx context.Context, actor domain.Actor, courseID uuid.UUID, title string) (*domain.Section, error) {
	var out *domain.Section
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		if _, err := managedCourse(ctx, repos, actor, courseID); err != nil {
			return err
		}
		pos, err := repos.Sections.NextPosition(ctx, courseID)
		if err != nil {
			return err
		}
		section, err := domain.NewSection(courseID, title, pos)
		if err != nil {
			return validation("title", err)
		}
		if err := repos.Sections.Create(ctx, section); err != nil {
			return err
		}
		out = section
		return repos.Courses.AdjustContentCounts(ctx, courseID, 1, 0)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("section added",
		slog.String("course_id", courseID.String()),
		slog.String("section_id", out.ID.String()))
	return out, nil
}

// UpdateSection renames a section.
func (s *Service) UpdateSection(ctx context.Context, actor domain.Actor, id uuid.UUID, title string) (*domain.Section, error) {
	return s.changeSection(ctx, actor, id, func(sec *domain.Section) error {
		sec.Title = strings.TrimSpace(title)
		if err := sec.Validate(); err != nil {
			return validation("title", err)
		}
		return nil
	})
}

// ToggleSectionDisabled hides or shows a section.
func (s *Service) ToggleSectionDisabled(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Section, error) {
	return s.changeSection(ctx, actor, id, func(sec *domain.Section) error {
		sec.Disabled = !sec.Disabled
		return nil
	})
}

// DeleteSection soft-deletes a section together with its lectures.
func (s *Service) DeleteSection(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	return s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		sec, err := managedSection(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		lectures, err := repos.Lectures.ListBySection(ctx, id, true)
		if err != nil {
			return err
		}
		for _, l := range lectures {
			l.Deleted = true
			l.UpdatedAt = now
			if err := repos.Lectures.Update(ctx, l); err != nil {
				return err
			}
		}
		sec.Deleted = true
		sec.UpdatedAt = now
		if err := repos.Sections.Update(ctx, sec); err != nil {
			return err
		}
		return repos.Courses.AdjustContentCounts(ctx, sec.CourseID, -1, -len(lectures))
	})
}

// ListSections returns the course's sections in order. Disabled sections
// are included for the course's managers.
func (s *Service) ListSections(ctx context.Context, viewer *domain.Actor, courseID uuid.UUID) ([]*domain.Section, error) {
	repos := s.uow.Repositories()
	c, err := liveCourse(ctx, repos, courseID, false)
	if err != nil {
		return nil, err
	}
	return repos.Sections.ListByCourse(ctx, courseID, viewer != nil && viewer.CanManage(c.InstructorID))
}

func (s *Service) changeSection(ctx context.Context, actor domain.Actor, id uuid.UUID, mutate func(*domain.Section) error) (*domain.Section, error) {
	var out *domain.Section
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		sec, err := managedSection(ctx, repos, actor, id)
		if err != nil {
			return err
		}
		if err := mutate(sec); err != nil {
			return err
		}
		sec.UpdatedAt = time.Now().UTC()
		out = sec
		return repos.Sections.Update(ctx, sec)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddLecture appends a lecture to the section.
func (s *Service) AddLecture(ctx context.Context, actor domain.Actor, sectionID uuid.UUID, in LectureInput) (*domain.Lecture, error) {
	var out *domain.Lecture
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		sec, err := managedSection(ctx, repos, actor, sectionID)
		if err != nil {
			return err
		}
		pos, err := repos.Lectures.NextPosition(ctx, sectionID)
		if err != nil {
			return err
		}
		lecture, err := domain.NewLecture(sec.CourseID, sectionID, in.Title, pos)
		if err != nil {
			return validation("title", err)
		}
		in.apply(lecture)
		if err := lecture.Validate(); err != nil {
			return validation("", err)
		}
		if err := repos.Lectures.Create(ctx, lecture); err != nil {
			return err
		}
		out = lecture
		return repos.Courses.AdjustContentCounts(ctx, sec.CourseID, 0, 1)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("lecture added",
		slog.String("section_id", sectionID.String()),
		slog.String("lecture_id", out.ID.String()))
	return out, nil
}

// UpdateLecture replaces the editable fields of a lecture.
func (s *Service) UpdateLecture(ctx context.Context, actor domain.Actor, id uuid.UUID, in LectureInput) (*domain.Lecture, error) {
	return s.changeLecture(ctx, actor, id, func(l *domain.Lecture) error {
		in.apply(l)
		if err := l.Validate(); err != nil {
			return validation("", err)
		}
		return nil
	})
}

// ToggleLectureDisabled hides or shows a lecture.
func (s *Service) ToggleLectureDisabled(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Lecture, error) {
	return s.changeLecture(ctx, actor, id, func(l *domain.Lecture) error {
		l.Disabled = !l.Disabled
		return nil
	})
}

// DeleteLecture soft-deletes a lecture.
func (s *Service) DeleteLecture(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	_, err := s.changeLecture(ctx, actor, id, func(l *domain.Lecture) error {
		l.Deleted = true
		return nil
	})
	return err
}

func (s *Service) changeLecture(ctx context.Context, actor domain.Actor, id uuid.UUID, mutate func(*domain.Lecture) error) (*domain.Lecture, error) {
	var out *domain.Lecture
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		l, err := liveLecture(ctx, repos, id)
		if err != nil {
			return err
		}
		if _, err := managedCourse(ctx, repos, actor, l.CourseID); err != nil {
			return err
		}
		if err := mutate(l); err != nil {
			return err
		}
		l.UpdatedAt = time.Now().UTC()
		if err := repos.Lectures.Update(ctx, l); err != nil {
			return err
		}
		out = l
		if l.Deleted {
			return repos.Courses.AdjustContentCounts(ctx, l.CourseID, 0, -1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListLectures returns the section's lectures in order. Video links are
// removed from lectures the viewer may not watch.
func (s *Service) ListLectures(ctx context.Context, viewer *domain.Actor, sectionID uuid.UUID) ([]*domain.Lecture, error) {
	repos := s.uow.Repositories()
	sec, err := liveSection(ctx, repos, sectionID)
	if err != nil {
		return nil, err
	}
	c, err := liveCourse(ctx, repos, sec.CourseID, false)
	if err != nil {
		return nil, err
	}
	manager := viewer != nil && viewer.CanManage(c.InstructorID)
	lectures, err := repos.Lectures.ListBySection(ctx, sectionID, manager)
	if err != nil {
		return nil, err
	}
	return s.redactLocked(ctx, repos, viewer, c, lectures)
}

// ListCourseLectures returns every lecture of the course, section by section.
// Video links are removed as in ListLectures.
func (s *Service) ListCourseLectures(ctx context.Context, viewer *domain.Actor, courseID uuid.UUID) ([]*domain.Lecture, error) {
	repos := s.uow.Repositories()
	c, err := liveCourse(ctx, repos, courseID, false)
	if err != nil {
		return nil, err
	}
	manager := viewer != nil && viewer.CanManage(c.InstructorID)
	sections, err := repos.Sections.ListByCourse(ctx, courseID, manager)
	if err != nil {
		return nil, err
	}
	lectures := []*domain.Lecture{}
	for _, sec := range sections {
		batch, err := repos.Lectures.ListBySection(ctx, sec.ID, manager)
		if err != nil {
			return nil, err
		}
		lectures = append(lectures, batch...)
	}
	return s.redactLocked(ctx, repos, viewer, c, lectures)
}

// GetSection returns a section. Disabled sections are only visible to the
// course's managers.
func (s *Service) GetSection(ctx context.Context, viewer *domain.Actor, id uuid.UUID) (*domain.Section, error) {
	repos := s.uow.Repositories()
	sec, err := liveSection(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	c, err := liveCourse(ctx, repos, sec.CourseID, false)
	if err != nil {
		return nil, err
	}
	if sec.Disabled && (viewer == nil || !viewer.CanManage(c.InstructorID)) {
		return nil, store.ErrSectionNotFound
	}
	return sec, nil
}

// redactLocked blanks the video link of non-preview lectures unless the
// viewer may watch the course.
func (s *Service) redactLocked(ctx context.Context, repos store.Repositories, viewer *domain.Actor, c *domain.Course, lectures []*domain.Lecture) ([]*domain.Lecture, error) {
	full, err := s.hasAccess(ctx, repos, viewer, c)
	if err != nil {
		return nil, err
	}
	if !full {
		for _, l := range lectures {
			if !l.Preview {
				l.VideoURL = ""
			}
		}
	}
	return lectures, nil
}

// GetLecture returns a lecture. Lectures that are not previews require the
// viewer to be enrolled in, own or administer the course.
func (s *Service) GetLecture(ctx context.Context, viewer *domain.Actor, id uuid.UUID) (*domain.Lecture, error) {
	repos := s.uow.Repositories()
	l, err := liveLecture(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	c, err := liveCourse(ctx, repos, l.CourseID, false)
	if err != nil {
		return nil, err
	}
	if l.Disabled && (viewer == nil || !viewer.CanManage(c.InstructorID)) {
		return nil, store.ErrLectureNotFound
	}
	if l.Preview {
		return l, nil
	}
	ok, err := s.hasAccess(ctx, repos, viewer, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLectureLocked
	}
	return l, nil
}

func (s *Service) hasAccess(ctx context.Context, repos store.Repositories, viewer *domain.Actor, c *domain.Course) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	if viewer.CanManage(c.InstructorID) {
		return true, nil
	}
	return repos.Enrollments.IsUserEnrolled(ctx, viewer.ID, c.ID)
}

func liveSection(ctx context.Context, repos store.Repositories, id uuid.UUID) (*domain.Section, error) {
	sec, err := repos.Sections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sec.Deleted {
		return nil, store.ErrSectionNotFound
	}
	return sec, nil
}

func liveLecture(ctx context.Context, repos store.Repositories, id uuid.UUID) (*domain.Lecture, error) {
	l, err := repos.Lectures.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Deleted {
		return nil, store.ErrLectureNotFound
	}
	return l, nil
}

// managedSection loads a live section whose course the actor may change.
func managedSection(ctx context.Context, repos store.Repositories, actor domain.Actor, id uuid.UUID) (*domain.Section, error) {
	sec, err := liveSection(ctx, repos, id)
	if err != nil {
		return nil, err
	}
	if _, err := managedCourse(ctx, repos, actor, sec.CourseID); err != nil {
		return nil, err
	}
	return sec, nil
}
