package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type courseStore struct{ base }

var _ store.CourseStore = (*courseStore)(nil)

func slugTaken(d *data, slug string, except uuid.UUID) bool {
	if slug == "" {
		return false
	}
	for id, c := range d.courses {
		if id != except && c.Slug == slug {
			return true
		}
	}
	return false
}

func (s *courseStore) Create(ctx context.Context, course *domain.Course) error {
	if err := course.Validate(); err != nil {
		return err
	}
	return s.write(OpCourseUpdate, func(d *data) error {
		if _, ok := d.users[course.InstructorID]; !ok {
			return store.ErrInvalidEntity
		}
		if slugTaken(d, course.Slug, uuid.Nil) {
			return store.ErrSlugExists
		}
		d.courses[course.ID] = *course
		return nil
	})
}

func (s *courseStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var out *domain.Course
	err := s.read(func(d *data) error {
		c, ok := d.courses[id]
		if !ok {
			return store.ErrCourseNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no row lock: transactions are already serialized.
func (s *courseStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return s.GetByID(ctx, id)
}

func (s *courseStore) Update(ctx context.Context, course *domain.Course) error {
	if err := course.Validate(); err != nil {
		return err
	}
	return s.write(OpCourseUpdate, func(d *data) error {
		existing, ok := d.courses[course.ID]
		if !ok {
			return store.ErrCourseNotFound
		}
		if slugTaken(d, course.Slug, course.ID) {
			return store.ErrSlugExists
		}
		c := *course
		c.CreatedAt = existing.CreatedAt
		d.courses[c.ID] = c
		return nil
	})
}

func (s *courseStore) UpdateRating(ctx context.Context, id uuid.UUID, rating domain.RatingAggregate) error {
	return s.write(OpCourseRating, func(d *data) error {
		c, ok := d.courses[id]
		if !ok {
			return store.ErrCourseNotFound
		}
		c.Rating = rating
		d.courses[id] = c
		return nil
	})
}

func (s *courseStore) AdjustContentCounts(ctx context.Context, id uuid.UUID, sectionDelta, lectureDelta int) error {
	return s.write(OpCourseUpdate, func(d *data) error {
		c, ok := d.courses[id]
		if !ok {
			return store.ErrCourseNotFound
		}
		c.SectionCount = max(c.SectionCount+sectionDelta, 0)
		c.LectureCount = max(c.LectureCount+lectureDelta, 0)
		d.courses[id] = c
		return nil
	})
}

func (s *courseStore) List(ctx context.Context, filter store.CourseFilter) ([]*domain.Course, int, error) {
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := []*domain.Course{}
	err := s.read(func(d *data) error {
		for _, c := range d.courses {
			switch {
			case c.Deleted,
				c.Disabled && !filter.IncludeDisabled,
				filter.Category != "" && c.Category != filter.Category,
				filter.InstructorID != uuid.Nil && c.InstructorID != filter.InstructorID,
				filter.Status != "" && c.Status != filter.Status,
				term != "" && !strings.Contains(strings.ToLower(c.Title), term):
				continue
			}
			c := c
			matches = append(matches, &c)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID.String() < matches[j].ID.String()
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return page(matches, filter.Limit, filter.Offset), len(matches), nil
}

func (s *courseStore) ListIDsByInstructor(ctx context.Context, instructorID uuid.UUID) ([]uuid.UUID, error) {
	var owned []domain.Course
	err := s.read(func(d *data) error {
		for _, c := range d.courses {
			if c.InstructorID == instructorID {
				owned = append(owned, c)
			}
		}
		return nil
	})
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
	ids := make([]uuid.UUID, len(owned))
	for i, c := range owned {
		ids[i] = c.ID
	}
	return ids, err
}

func (s *courseStore) CategoryCounts(ctx context.Context) ([]store.CategoryCount, error) {
	byCategory := map[string]int{}
	err := s.read(func(d *data) error {
		for _, c := range d.courses {
			if c.Status == domain.CourseStatusApproved && !c.Disabled && !c.Deleted && c.Category != "" {
				byCategory[c.Category]++
			}
		}
		return nil
	})
	counts := make([]store.CategoryCount, 0, len(byCategory))
	for category, n := range byCategory {
		counts = append(counts, store.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Category < counts[j].Category })
	return counts, err
}

type sectionStore struct{ base }

var _ store.SectionStore = (*sectionStore)(nil)

func (s *sectionStore) Create(ctx context.Context, section *domain.Section) error {
	if err := section.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.courses[section.CourseID]; !ok {
			return store.ErrCourseNotFound
		}
		d.sections[section.ID] = *section
		return nil
	})
}

func (s *sectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	var out *domain.Section
	err := s.read(func(d *data) error {
		sec, ok := d.sections[id]
		if !ok {
			return store.ErrSectionNotFound
		}
		out = &sec
		return nil
	})
	return out, err
}

func (s *sectionStore) Update(ctx context.Context, section *domain.Section) error {
	if err := section.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.sections[section.ID]; !ok {
			return store.ErrSectionNotFound
		}
		d.sections[section.ID] = *section
		return nil
	})
}

func (s *sectionStore) ListByCourse(ctx context.Context, courseID uuid.UUID, includeDisabled bool) ([]*domain.Section, error) {
	out := []*domain.Section{}
	err := s.read(func(d *data) error {
		for _, sec := range d.sections {
			if sec.CourseID != courseID || sec.Deleted || (sec.Disabled && !includeDisabled) {
				continue
			}
			sec := sec
			out = append(out, &sec)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, err
}

func (s *sectionStore) NextPosition(ctx context.Context, courseID uuid.UUID) (int, error) {
	next := 1
	err := s.read(func(d *data) error {
		for _, sec := range d.sections {
			if sec.CourseID == courseID && sec.Position >= next {
				next = sec.Position + 1
			}
		}
		return nil
	})
	return next, err
}

type lectureStore struct{ base }

var _ store.LectureStore = (*lectureStore)(nil)

func (s *lectureStore) Create(ctx context.Context, lecture *domain.Lecture) error {
	if err := lecture.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.sections[lecture.SectionID]; !ok {
			return store.ErrSectionNotFound
		}
		d.lectures[lecture.ID] = *lecture
		return nil
	})
}

func (s *lectureStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lecture, error) {
	var out *domain.Lecture
	err := s.read(func(d *data) error {
		l, ok := d.lectures[id]
		if !ok {
			return store.ErrLectureNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (s *lectureStore) Update(ctx context.Context, lecture *domain.Lecture) error {
	if err := lecture.Validate(); err != nil {
		return err
	}
	return s.read(func(d *data) error {
		if _, ok := d.lectures[lecture.ID]; !ok {
			return store.ErrLectureNotFound
		}
		d.lectures[lecture.ID] = *lecture
		return nil
	})
}

func (s *lectureStore) ListBySection(ctx context.Context, sectionID uuid.UUID, includeDisabled bool) ([]*domain.Lecture, error) {
	out := []*domain.Lecture{}
	err := s.read(func(d *data) error {
		for _, l := range d.lectures {
			if l.SectionID != sectionID || l.Deleted || (l.Disabled && !includeDisabled) {
				continue
			}
			l := l
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, err
}

func (s *lectureStore) CountLiveBySection(ctx context.Context, sectionID uuid.UUID) (int, error) {
	n := 0
	err := s.read(func(d *data) error {
		for _, l := range d.lectures {
			if l.SectionID == sectionID && !l.Deleted {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *lectureStore) NextPosition(ctx context.Context, sectionID uuid.UUID) (int, error) {
	next := 1
	err := s.read(func(d *data) error {
		for _, l := range d.lectures {
			if l.SectionID == sectionID && l.Position >= next {
				next = l.Position + 1
			}
		}
		return nil
	})
	return next, err
}
