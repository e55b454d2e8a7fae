package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/service/catalog"
	"github.com/phrazzld/pantognostis-api/internal/service/webinar"
)

// SignupRequest defines the payload for the signup endpoints.
type SignupRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// VerifyEmailRequest defines the payload for the e-mail verification endpoint.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,numeric,len=4"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ForgotPasswordRequest defines the payload for requesting a reset code.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest defines the payload for resetting a password with a code.
type ResetPasswordRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Code     string `json:"code"     validate:"required,numeric,len=4"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest defines the payload for changing the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=72"`
}

// AuthResponse defines the successful response for the login endpoint.
type AuthResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// MessageResponse is returned by endpoints that have nothing else to report.
type MessageResponse struct {
	Message string `json:"message"`
}

// CourseRequest defines the payload for creating and updating a course.
type CourseRequest struct {
	Title       string          `json:"title"        validate:"required,max=200"`
	Subtitle    string          `json:"subtitle"     validate:"max=300"`
	Description string          `json:"description"`
	Category    string          `json:"category"     validate:"max=100"`
	SubCategory string          `json:"sub_category" validate:"max=100"`
	Language    string          `json:"language"     validate:"max=50"`
	Level       string          `json:"level"        validate:"omitempty,oneof=beginner intermediate advanced"`
	Price       decimal.Decimal `json:"price"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	Duration    string          `json:"duration"     validate:"max=50"`
}

// Validate checks the amounts, which the struct tags cannot express.
func (r CourseRequest) Validate() error {
	if r.Price.IsNegative() {
		return domain.NewValidationError("price", "cannot be negative", domain.ErrValidation)
	}
	if r.PlatformFee.IsNegative() {
		return domain.NewValidationError("platform_fee", "cannot be negative", domain.ErrValidation)
	}
	return nil
}

func (r CourseRequest) input() catalog.CourseInput {
	return catalog.CourseInput{
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Description: r.Description,
		Category:    r.Category,
		SubCategory: r.SubCategory,
		Language:    r.Language,
		Level:       domain.CourseLevel(r.Level),
		Price:       r.Price,
		PlatformFee: r.PlatformFee,
		Duration:    r.Duration,
	}
}

// SectionRequest defines the payload for creating and renaming a section.
type SectionRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

// LectureRequest defines the payload for creating and updating a lecture.
type LectureRequest struct {
	Title           string `json:"title"            validate:"required,max=200"`
	Description     string `json:"description"`
	VideoURL        string `json:"video_url"        validate:"omitempty,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Preview         bool   `json:"preview"`
}

func (r LectureRequest) input() catalog.LectureInput {
	return catalog.LectureInput{
		Title:           r.Title,
		Description:     r.Description,
		VideoURL:        r.VideoURL,
		DurationSeconds: r.DurationSeconds,
		Preview:         r.Preview,
	}
}

// ReviewRequest defines the payload for reviewing a course.
type ReviewRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// EditReviewRequest defines the payload for editing a review. Absent fields
// are left unchanged.
type EditReviewRequest struct {
	Rating  *int    `json:"rating"  validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// Validate rejects an edit that changes nothing.
func (r EditReviewRequest) Validate() error {
	if r.Rating == nil && r.Comment == nil {
		return domain.NewValidationError("", "rating or comment is required", domain.ErrValidation)
	}
	return nil
}

// CreateIntentRequest defines the payload for starting a card checkout.
type CreateIntentRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
}

// ConfirmPaymentRequest defines the payload for confirming a gateway payment.
type ConfirmPaymentRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required,max=255"`
	CourseID        uuid.UUID `json:"course_id"         validate:"required"`
}

// SaveCardRequest defines the payload for attaching a card to the caller.
type SaveCardRequest struct {
	Token string `json:"token" validate:"required,max=255"`
}

// ConfirmSavedCardRequest defines the payload for paying with the saved card.
type ConfirmSavedCardRequest struct {
	CourseID uuid.UUID `json:"course_id" validate:"required"`
}

// WebinarRequest defines the payload for scheduling and updating a webinar.
type WebinarRequest struct {
	Title       string    `json:"title"       validate:"required,max=200"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"   validate:"required"`
	HostName    string    `json:"host_name"   validate:"max=100"`
	HostTitle   string    `json:"host_title"  validate:"max=100"`
	Link        string    `json:"link"        validate:"omitempty,url"`
	PromoCode   string    `json:"promo_code"  validate:"max=50"`
}

func (r WebinarRequest) input() webinar.Input {
	return webinar.Input{
		Title:       r.Title,
		Description: r.Description,
		StartsAt:    r.StartsAt,
		HostName:    r.HostName,
		HostTitle:   r.HostTitle,
		Link:        r.Link,
		PromoCode:   r.PromoCode,
	}
}

// RegistrationResponse reports the outcome of a webinar registration.
type RegistrationResponse struct {
	Registered bool `json:"registered"`
	// AlreadyRegistered is true when the call changed nothing.
	AlreadyRegistered bool `json:"already_registered"`
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// ProfileRequest defines the payload for updating profile fields. Blank
// fields keep their current value.
type ProfileRequest struct {
	Name        string `json:"name"         validate:"max=120"`
	Phone       string `json:"phone"        validate:"max=120"`
	Profession  string `json:"profession"   validate:"max=120"`
	CompanyName string `json:"company_name" validate:"max=120"`
}

func (r ProfileRequest) profile() domain.Profile {
	return domain.Profile{
		Name:       r.Name,
		Phone:      r.Phone,
		Profession: r.Profession,
		Company:    r.CompanyName,
	}
}

// AdminUpdateUserRequest defines the payload for an admin's change to an
// account. Absent flags are left unchanged.
type AdminUpdateUserRequest struct {
	ProfileRequest
	Active *bool `json:"active"`
	Locked *bool `json:"locked"`
}

// ContactSupportRequest defines the payload for the support contact form.
type ContactSupportRequest struct {
	Name    string `json:"name"    validate:"required,max=120"`
	Email   string `json:"email"   validate:"required,email"`
	Phone   string `json:"phone"   validate:"max=120"`
	Message string `json:"message" validate:"required,max=5000"`
}
