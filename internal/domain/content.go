package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Section and lecture validation errors
var (
	ErrEmptySectionID      = errors.New("section ID cannot be empty")
	ErrEmptySectionTitle   = errors.New("section title cannot be empty")
	ErrEmptyLectureID      = errors.New("lecture ID cannot be empty")
	ErrEmptyLectureTitle   = errors.New("lecture title cannot be empty")
	ErrNegativeDuration    = errors.New("lecture duration cannot be negative")
	ErrEmptyParentCourseID = errors.New("course ID cannot be empty")
)

// Section groups the lectures of a course.
type Section struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Disabled  bool      `json:"disabled"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSection creates a section of the given course at the given position.
func NewSection(courseID uuid.UUID, title string, position int) (*Section, error) {
	now := time.Now().UTC()
	s := &Section{
		ID:        uuid.New(),
		CourseID:  courseID,
		Title:     strings.TrimSpace(title),
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks if the Section has valid data.
func (s *Section) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySectionID
	}
	if s.CourseID == uuid.Nil {
		return ErrEmptyParentCourseID
	}
	if s.Title == "" {
		return ErrEmptySectionTitle
	}
	return nil
}

// Lecture is a single piece of video content inside a section.
type Lecture struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	SectionID       uuid.UUID `json:"section_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"video_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Position        int       `json:"position"`
	Preview         bool      `json:"preview"`
	Disabled        bool      `json:"disabled"`
	Deleted         bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewLecture creates a lecture inside the given section.
func NewLecture(courseID, sectionID uuid.UUID, title string, position int) (*Lecture, error) {
	now := time.Now().UTC()
	l := &Lecture{
		ID:        uuid.New(),
		CourseID:  courseID,
		SectionID: sectionID,
		Title:     strings.TrimSpace(title),
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks if the Lecture has valid data.
func (l *Lecture) Validate() error {
	if l.ID == uuid.Nil {
		return ErrEmptyLectureID
	}
	if l.CourseID == uuid.Nil {
		return ErrEmptyParentCourseID
	}
	if l.SectionID == uuid.Nil {
		return ErrEmptySectionID
	}
	if l.Title == "" {
		return ErrEmptyLectureTitle
	}
	if l.DurationSeconds < 0 {
		return ErrNegativeDuration
	}
	return nil
}
