package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Role is a single capability granted to a user.
type Role string

// Supported roles.
const (
	RoleUser       Role = "user"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var (
	// ErrUnknownRole is returned when a role name is not recognised.
	ErrUnknownRole = errors.New("unknown role")

	// ErrEmptyRoleSet is returned when an operation would leave a user without any role.
	ErrEmptyRoleSet = errors.New("role set cannot be empty")
)

// RoleSet is the set of roles held by a user, stored as a bitmask.
// The zero value is the empty set; a persisted user always holds at least one role.
type RoleSet uint8

// allRoles fixes the bit order and the order in which roles are listed.
var allRoles = []Role{RoleUser, RoleInstructor, RoleAdmin}

func roleBit(r Role) (RoleSet, error) {
	for i, known := range allRoles {
		if known == r {
			return RoleSet(1) << i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) (RoleSet, error) {
	var s RoleSet
	for _, r := range roles {
		if err := s.Add(r); err != nil {
			return 0, err
		}
	}
	if s.IsEmpty() {
		return 0, ErrEmptyRoleSet
	}
	return s, nil
}

// MustRoleSet is NewRoleSet for statically known roles. It panics on error.
func MustRoleSet(roles ...Role) RoleSet {
	s, err := NewRoleSet(roles...)
	if err != nil {
		panic(err)
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	bit, err := roleBit(r)
	if err != nil {
		return false
	}
	return s&bit != 0
}

// IsEmpty reports whether the set holds no role.
func (s RoleSet) IsEmpty() bool {
	return s == 0
}

// Add inserts r into the set. Adding a role already present is a no-op.
func (s *RoleSet) Add(r Role) error {
	bit, err := roleBit(r)
	if err != nil {
		return err
	}
	*s |= bit
	return nil
}

// Remove deletes r from the set. It refuses to remove the last remaining role.
func (s *RoleSet) Remove(r Role) error {
	bit, err := roleBit(r)
	if err != nil {
		return err
	}
	next := *s &^ bit
	if next == 0 {
		return ErrEmptyRoleSet
	}
	*s = next
	return nil
}

// Roles lists the roles in the set in a stable order.
func (s RoleSet) Roles() []Role {
	roles := make([]Role, 0, len(allRoles))
	for _, r := range allRoles {
		if s.Has(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Strings lists the role names in the set.
func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// ParseRoles converts role names into a RoleSet.
func ParseRoles(names []string) (RoleSet, error) {
	roles := make([]Role, len(names))
	for i, n := range names {
		roles[i] = Role(n)
	}
	return NewRoleSet(roles...)
}

// MarshalJSON encodes the set as an array of role names.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes an array of role names.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParseRoles(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer; the set is stored as its integer mask.
func (s RoleSet) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *RoleSet) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*s = RoleSet(v)
	case int32:
		*s = RoleSet(v)
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return fmt.Errorf("scan role set: %w", err)
		}
		*s = RoleSet(n)
	case nil:
		*s = 0
	default:
		return fmt.Errorf("scan role set: unsupported type %T", src)
	}
	return nil
}
