package domain

import "github.com/google/uuid"

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    uuid.UUID
	Roles RoleSet
}

// NewActor creates an Actor for the given user and roles.
func NewActor(id uuid.UUID, roles RoleSet) Actor {
	return Actor{ID: id, Roles: roles}
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Roles.Has(RoleAdmin)
}

// CanManage reports whether the actor owns the resource or is an admin.
func (a Actor) CanManage(ownerID uuid.UUID) bool {
	return a.ID == ownerID || a.IsAdmin()
}
