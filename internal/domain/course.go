package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Course-specific validation errors
var (
	ErrEmptyCourseID           = errors.New("course ID cannot be empty")
	ErrEmptyCourseInstructorID = errors.New("course instructor ID cannot be empty")
	ErrEmptyCourseTitle        = errors.New("course title cannot be empty")
	ErrInvalidCourseLevel      = errors.New("invalid course level")
	ErrInvalidCourseStatus     = errors.New("invalid course status")
)

// CourseLevel is the audience difficulty of a course.
type CourseLevel string

// Possible course levels
const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
)

// CourseStatus is the moderation state of a course.
type CourseStatus string

// Possible course status values
const (
	CourseStatusPending   CourseStatus = "pending"
	CourseStatusApproved  CourseStatus = "approved"
	CourseStatusCancelled CourseStatus = "cancelled"
)

// Course is a purchasable unit of content owned by exactly one instructor.
type Course struct {
	ID           uuid.UUID       `json:"id"`
	InstructorID uuid.UUID       `json:"instructor_id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Subtitle     string          `json:"subtitle"`
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	SubCategory  string          `json:"sub_category"`
	Language     string          `json:"language"`
	Level        CourseLevel     `json:"level"`
	Price        decimal.Decimal `json:"price"`
	PlatformFee  decimal.Decimal `json:"platform_fee"`
	Duration     string          `json:"duration"`
	Status       CourseStatus    `json:"status"`
	Disabled     bool            `json:"disabled"`
	Deleted      bool            `json:"-"`
	SectionCount int             `json:"section_count"`
	LectureCount int             `json:"lecture_count"`
	Rating       RatingAggregate `json:"rating"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewCourse creates a pending course for the given instructor.
// The slug is left for the caller to derive.
func NewCourse(instructorID uuid.UUID, title string, price decimal.Decimal) (*Course, error) {
	now := time.Now().UTC()
	course := &Course{
		ID:           uuid.New(),
		InstructorID: instructorID,
		Title:        strings.TrimSpace(title),
		Level:        LevelBeginner,
		Price:        price,
		PlatformFee:  decimal.Zero,
		Status:       CourseStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := course.Validate(); err != nil {
		return nil, err
	}

	return course, nil
}

// Validate checks if the Course has valid data.
func (c *Course) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCourseID
	}
	if c.InstructorID == uuid.Nil {
		return ErrEmptyCourseInstructorID
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyCourseTitle
	}
	if err := ValidateAmount(c.Price); err != nil {
		return err
	}
	if err := ValidateAmount(c.PlatformFee); err != nil {
		return err
	}
	if !IsValidCourseLevel(c.Level) {
		return ErrInvalidCourseLevel
	}
	if !isValidCourseStatus(c.Status) {
		return ErrInvalidCourseStatus
	}
	return nil
}

// IsPurchasable reports whether the course can currently be bought.
func (c *Course) IsPurchasable() bool {
	return c.Status == CourseStatusApproved && !c.Disabled && !c.Deleted
}

// IsOwnedBy reports whether userID is the course's instructor.
func (c *Course) IsOwnedBy(userID uuid.UUID) bool {
	return c.InstructorID == userID
}

// ToggleApproval flips the moderation status: pending and cancelled become
// approved, approved becomes cancelled.
func (c *Course) ToggleApproval() {
	if c.Status == CourseStatusApproved {
		c.Status = CourseStatusCancelled
	} else {
		c.Status = CourseStatusApproved
	}
	c.UpdatedAt = time.Now().UTC()
}

// IsValidCourseLevel reports whether l is a known level.
func IsValidCourseLevel(l CourseLevel) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	default:
		return false
	}
}

func isValidCourseStatus(s CourseStatus) bool {
	switch s {
	case CourseStatusPending, CourseStatusApproved, CourseStatusCancelled:
		return true
	default:
		return false
	}
}
