package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Review validation errors
var (
	ErrEmptyReviewID       = errors.New("review ID cannot be empty")
	ErrEmptyReviewUserID   = errors.New("review user ID cannot be empty")
	ErrEmptyReviewCourseID = errors.New("review course ID cannot be empty")
)

// Review is a user's rating of a course. At most one live review exists per
// user and course; deleted reviews are kept with Deleted set.
type Review struct {
	ID        uuid.UUID `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReview creates a review with the given rating and comment.
func NewReview(courseID, userID uuid.UUID, rating int, comment string) (*Review, error) {
	now := time.Now().UTC()
	r := &Review{
		ID:        uuid.New(),
		CourseID:  courseID,
		UserID:    userID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks if the Review has valid data.
func (r *Review) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyReviewID
	}
	if r.CourseID == uuid.Nil {
		return ErrEmptyReviewCourseID
	}
	if r.UserID == uuid.Nil {
		return ErrEmptyReviewUserID
	}
	return ValidateRating(r.Rating)
}
