package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notification validation errors
var (
	ErrEmptyNotificationRecipient = errors.New("notification recipient cannot be empty")
	ErrEmptyNotificationMessage   = errors.New("notification message cannot be empty")
	ErrInvalidNotificationType    = errors.New("invalid notification type")
)

// NotificationType classifies an in-app notification.
type NotificationType string

// Possible notification types
const (
	NotifyInstructorApplication NotificationType = "instructor_application"
	NotifyInstructorApproved    NotificationType = "instructor_approved"
	NotifyInstructorCancelled   NotificationType = "instructor_cancelled"
	NotifyCourseApproved        NotificationType = "course_approved"
	NotifyCourseCancelled       NotificationType = "course_cancelled"
	NotifyEnrollment            NotificationType = "enrollment"
	NotifyReview                NotificationType = "review"
	NotifyWebinarRegistration   NotificationType = "webinar_registration"
	NotifyWebinarReminder       NotificationType = "webinar_reminder"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	ActorID     *uuid.UUID       `json:"actor_id,omitempty"`
	CourseID    *uuid.UUID       `json:"course_id,omitempty"`
	WebinarID   *uuid.UUID       `json:"webinar_id,omitempty"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification.
func NewNotification(recipientID uuid.UUID, typ NotificationType, message string) (*Notification, error) {
	n := &Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		Type:        typ,
		Message:     strings.TrimSpace(message),
		CreatedAt:   time.Now().UTC(),
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.RecipientID == uuid.Nil {
		return ErrEmptyNotificationRecipient
	}
	if n.Message == "" {
		return ErrEmptyNotificationMessage
	}
	switch n.Type {
	case NotifyInstructorApplication, NotifyInstructorApproved, NotifyInstructorCancelled,
		NotifyCourseApproved, NotifyCourseCancelled, NotifyEnrollment, NotifyReview,
		NotifyWebinarRegistration, NotifyWebinarReminder:
		return nil
	default:
		return ErrInvalidNotificationType
	}
}
