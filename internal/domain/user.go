package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrEmptyUserID         = errors.New("user ID cannot be empty")
	ErrEmptyUserName       = errors.New("user name cannot be empty")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrInvalidInstructorSt = errors.New("invalid instructor status")
	ErrProfileFieldTooLong = errors.New("profile field is too long")
)

// MaxProfileFieldLength bounds each free-text profile field.
const MaxProfileFieldLength = 120

// Password length bounds. 72 bytes is bcrypt's practical limit.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// InstructorStatus tracks a user's application to teach on the platform.
type InstructorStatus string

// Possible instructor status values
const (
	InstructorNotApplied InstructorStatus = "not_applied"
	InstructorPending    InstructorStatus = "pending"
	InstructorApproved   InstructorStatus = "approved"
	InstructorCancelled  InstructorStatus = "cancelled"
)

// User represents a registered account on the platform.
type User struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Password         string           `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword   string           `json:"-"`
	Roles            RoleSet          `json:"roles"`
	InstructorStatus InstructorStatus `json:"instructor_status"`
	EmailVerified    bool             `json:"email_verified"`
	Active           bool             `json:"active"`
	Locked           bool             `json:"locked"`
	Phone            string           `json:"phone,omitempty"`
	Profession       string           `json:"profession,omitempty"`
	Company          string           `json:"company_name,omitempty"`
	// PaymentCustomerID is the gateway customer holding the user's saved card.
	PaymentCustomerID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewUser creates a new active, unverified User holding the user role.
//
// NOTE: This function only sets up the user structure with the plaintext password.
// The caller is responsible for hashing the password before storing the user.
func NewUser(name, email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(name),
		Email:            NormalizeEmail(email),
		Password:         password,
		Roles:            MustRoleSet(RoleUser),
		InstructorStatus: InstructorNotApplied,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// NormalizeEmail lower-cases and trims an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyUserName
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if u.Roles.IsEmpty() {
		return ErrEmptyRoleSet
	}

	if !isValidInstructorStatus(u.InstructorStatus) {
		return ErrInvalidInstructorSt
	}

	// Existing users carry only a hash; new users carry a plaintext password.
	if u.Password != "" {
		return ValidatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return ErrEmptyPassword
	}

	return nil
}

// Profile holds the self-service profile fields.
type Profile struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Profession string `json:"profession"`
	Company    string `json:"company_name"`
}

// ApplyProfile copies the non-blank fields of p onto u. Blank fields keep
// their current value. Nothing is changed when a field is too long.
func (u *User) ApplyProfile(p Profile) error {
	fields := []struct {
		name  string
		value string
		dst   *string
	}{
		{"name", p.Name, &u.Name},
		{"phone", p.Phone, &u.Phone},
		{"profession", p.Profession, &u.Profession},
		{"company_name", p.Company, &u.Company},
	}
	for _, f := range fields {
		if len(strings.TrimSpace(f.value)) > MaxProfileFieldLength {
			return NewValidationError(f.name, "is too long", ErrProfileFieldTooLong)
		}
	}
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			*f.dst = v
		}
	}
	return nil
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return u.EmailVerified && u.Active && !u.Locked
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// ValidatePassword enforces the password length bounds.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateEmail checks the basic shape of an e-mail address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if !validateEmailFormat(email) {
		return ErrInvalidEmail
	}
	return nil
}

// validateEmailFormat performs basic validation of email format:
// a non-empty local part, an @, and a dotted domain.
func validateEmailFormat(email string) bool {
	atIndex := strings.IndexByte(email, '@')
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dotIndex := strings.IndexByte(domainPart, '.')
	if dotIndex <= 0 || dotIndex == len(domainPart)-1 {
		return false
	}

	return !strings.ContainsAny(email, " \t\n")
}

func isValidInstructorStatus(s InstructorStatus) bool {
	switch s {
	case InstructorNotApplied, InstructorPending, InstructorApproved, InstructorCancelled:
		return true
	default:
		return false
	}
}
