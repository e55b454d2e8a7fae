package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/pantognostis-api/internal/domain"
	"github.com/phrazzld/pantognostis-api/internal/store"
)

type userStore struct{ base }

var _ store.UserStore = (*userStore)(nil)

func emailTaken(d *data, email string, except uuid.UUID) bool {
	email = domain.NormalizeEmail(email)
	for id, u := range d.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *userStore) Create(ctx context.Context, user *domain.User) error {
	if user.HashedPassword == "" {
		return fmt.Errorf("%w: user must carry a hashed password", store.ErrInvalidEntity)
	}
	return s.write(OpUserCreate, func(d *data) error {
		if _, ok := d.users[user.ID]; ok {
			return store.ErrDuplicate
		}
		if emailTaken(d, user.Email, uuid.Nil) {
			return store.ErrEmailExists
		}
		u := *user
		u.Email = domain.NormalizeEmail(u.Email)
		u.Password = ""
		d.users[u.ID] = u
		return nil
	})
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := s.read(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return store.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	email = domain.NormalizeEmail(email)
	err := s.read(func(d *data) error {
		for _, u := range d.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return store.ErrUserNotFound
	})
	return out, err
}

func (s *userStore) Update(ctx context.Context, user *domain.User) error {
	return s.write(OpUserUpdate, func(d *data) error {
		existing, ok := d.users[user.ID]
		if !ok {
			return store.ErrUserNotFound
		}
		if emailTaken(d, user.Email, user.ID) {
			return store.ErrEmailExists
		}
		u := *user
		u.Email = domain.NormalizeEmail(u.Email)
		u.Password = ""
		u.CreatedAt = existing.CreatedAt
		d.users[u.ID] = u
		return nil
	})
}

func (s *userStore) ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error) {
	if _, err := domain.NewRoleSet(role); err != nil {
		return nil, err
	}
	out := []*domain.User{}
	err := s.read(func(d *data) error {
		for _, u := range d.users {
			if u.Roles.Has(role) {
				u := u
				out = append(out, &u)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (s *userStore) List(ctx context.Context, filter store.UserFilter) ([]*domain.User, int, error) {
	if filter.Role != "" {
		if _, err := domain.NewRoleSet(filter.Role); err != nil {
			return nil, 0, err
		}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := []*domain.User{}
	err := s.read(func(d *data) error {
		for _, u := range d.users {
			if filter.Role != "" && !u.Roles.Has(filter.Role) {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
				!strings.Contains(u.Email, search) {
				continue
			}
			u := u
			matched = append(matched, &u)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}
