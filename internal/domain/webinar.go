package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Webinar validation errors
var (
	ErrEmptyWebinarCreator = errors.New("webinar creator cannot be empty")
	ErrEmptyWebinarTitle   = errors.New("webinar title cannot be empty")
	ErrEmptyWebinarStart   = errors.New("webinar start time cannot be empty")
)

// Webinar is a scheduled live session users can register to watch.
type Webinar struct {
	ID           uuid.UUID `json:"id"`
	CreatorID    uuid.UUID `json:"creator_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	HostName     string    `json:"host_name"`
	HostTitle    string    `json:"host_title"`
	Link         string    `json:"link"`
	PromoCode    string    `json:"promo_code,omitempty"`
	ReminderSent bool      `json:"reminder_sent"`
	WatcherCount int       `json:"watcher_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewWebinar creates a webinar starting at startsAt.
func NewWebinar(creatorID uuid.UUID, title string, startsAt time.Time) (*Webinar, error) {
	now := time.Now().UTC()
	w := &Webinar{
		ID:        uuid.New(),
		CreatorID: creatorID,
		Title:     strings.TrimSpace(title),
		StartsAt:  startsAt.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks if the Webinar has valid data.
func (w *Webinar) Validate() error {
	if w.CreatorID == uuid.Nil {
		return ErrEmptyWebinarCreator
	}
	if w.Title == "" {
		return ErrEmptyWebinarTitle
	}
	if w.StartsAt.IsZero() {
		return ErrEmptyWebinarStart
	}
	return nil
}
