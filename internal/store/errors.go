package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by every store implementation. Entity-specific
// errors wrap one of the generic ones, so callers can match either level
// with errors.Is.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity wraps a validation failure detected before a write.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransient marks failures that may succeed when the whole unit of
	// work is retried: serialization conflicts, deadlocks, dropped connections.
	ErrTransient = errors.New("transient store failure")

	ErrUserNotFound         = fmt.Errorf("%w: user", ErrNotFound)
	ErrCourseNotFound       = fmt.Errorf("%w: course", ErrNotFound)
	ErrSectionNotFound      = fmt.Errorf("%w: section", ErrNotFound)
	ErrLectureNotFound      = fmt.Errorf("%w: lecture", ErrNotFound)
	ErrReviewNotFound       = fmt.Errorf("%w: review", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("%w: transaction", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", ErrNotFound)
	ErrWebinarNotFound      = fmt.Errorf("%w: webinar", ErrNotFound)

	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
	ErrSlugExists  = fmt.Errorf("%w: slug", ErrDuplicate)
	// ErrReviewExists means the user already has a live review of the course.
	ErrReviewExists = fmt.Errorf("%w: review", ErrDuplicate)
)

// IsNotFoundError reports whether err is, or wraps, any not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is, or wraps, any uniqueness violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsTransientError reports whether the operation may succeed if retried.
func IsTransientError(err error) bool {
	return errors.Is(err, ErrTransient)
}
