package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("  Ada Lovelace ", " Ada@Example.com ", "longenoughpassword")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if user.Name != "Ada Lovelace" {
		t.Errorf("Expected trimmed name, got %q", user.Name)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if !user.Roles.Has(RoleUser) || user.Roles.Has(RoleAdmin) {
		t.Errorf("Expected only the user role, got %v", user.Roles.Strings())
	}
	if user.InstructorStatus != InstructorNotApplied {
		t.Errorf("Expected status %q, got %q", InstructorNotApplied, user.InstructorStatus)
	}
	if user.EmailVerified {
		t.Error("Expected new user to be unverified")
	}
	if user.CanLogin() {
		t.Error("Expected unverified user to be unable to log in")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
}

func TestNewUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"empty name", "", "a@b.co", "password123", ErrEmptyUserName},
		{"empty email", "Ada", "", "password123", ErrEmptyEmail},
		{"bad email", "Ada", "invalidemail", "password123", ErrInvalidEmail},
		{"email without domain dot", "Ada", "ada@example", "password123", ErrInvalidEmail},
		{"short password", "Ada", "a@b.co", "short", ErrPasswordTooShort},
		{"empty password", "Ada", "a@b.co", "", ErrEmptyPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewUser(tc.userName, tc.email, tc.password)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUserValidateExistingUser(t *testing.T) {
	u := User{
		ID:               uuid.New(),
		Name:             "Grace",
		Email:            "grace@example.com",
		HashedPassword:   "$2a$10$hash",
		Roles:            MustRoleSet(RoleUser, RoleAdmin),
		InstructorStatus: InstructorNotApplied,
	}
	if err := u.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !u.IsAdmin() {
		t.Error("Expected admin")
	}

	u.Roles = 0
	if err := u.Validate(); !errors.Is(err, ErrEmptyRoleSet) {
		t.Errorf("Expected %v, got %v", ErrEmptyRoleSet, err)
	}
}

func TestApplyProfile(t *testing.T) {
	user, err := NewUser("Ada", "ada@example.com", "longenoughpassword")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	user.Phone = "555-0100"

	if err := user.ApplyProfile(Profile{Name: " Ada L. ", Profession: "Engineer"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.Name != "Ada L." || user.Profession != "Engineer" {
		t.Errorf("Expected updated profile, got %q / %q", user.Name, user.Profession)
	}
	if user.Phone != "555-0100" {
		t.Errorf("Expected blank phone to keep %q, got %q", "555-0100", user.Phone)
	}

	long := make([]byte, MaxProfileFieldLength+1)
	for i := range long {
		long[i] = 'x'
	}
	err = user.ApplyProfile(Profile{Name: "Changed", Company: string(long)})
	if !errors.Is(err, ErrProfileFieldTooLong) || !IsValidationError(err) {
		t.Errorf("Expected a too-long validation error, got %v", err)
	}
	if user.Name != "Ada L." {
		t.Errorf("Expected no partial update, got name %q", user.Name)
	}
}
