// internal/store/users.go
//
// User persistence: registration, lookup, and the admin state flips
// (activate/deactivate/promote) with their idempotency conflicts.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/palabra-game/palabra-server/internal/model"
)

// CreateUser inserts a new account. Returns ErrConflict when the phone is
// already registered.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("phone = ?", u.Phone).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("phone %s already registered: %w", u.Phone, ErrConflict)
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		// The unique index is the backstop for concurrent registrations.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("phone %s already registered: %w", u.Phone, ErrConflict)
		}
		return err
	}
	return nil
}

// UserByPhone loads a user by phone number.
func (s *Store) UserByPhone(ctx context.Context, phone string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("phone %s: %w", phone, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByID loads a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ActivateUser flips is_active on. ErrConflict when the user is already
// active; ErrNotFound when there is no such user.
func (s *Store) ActivateUser(ctx context.Context, id uint) (*model.User, error) {
	return s.setActive(ctx, id, true)
}

// DeactivateUser flips is_active off. ErrConflict when the user is already
// deactivated.
func (s *Store) DeactivateUser(ctx context.Context, id uint) (*model.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *Store) setActive(ctx context.Context, id uint, active bool) (*model.User, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive == active {
		if active {
			return nil, fmt.Errorf("user %d already active: %w", id, ErrConflict)
		}
		return nil, fmt.Errorf("user %d already deactivated: %w", id, ErrConflict)
	}
	if err := s.db.WithContext(ctx).Model(u).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	u.IsActive = active
	return u, nil
}

// PromoteUser grants the admin role. Deactivated users and existing admins
// are conflicts, matching the admin API's idempotency rules.
func (s *Store) PromoteUser(ctx context.Context, id uint) (*model.User, error) {
	u, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("user %d is deactivated: %w", id, ErrConflict)
	}
	if u.Role == model.RoleAdmin {
		return nil, fmt.Errorf("user %d is already admin: %w", id, ErrConflict)
	}
	if err := s.db.WithContext(ctx).Model(u).Update("role", model.RoleAdmin).Error; err != nil {
		return nil, err
	}
	u.Role = model.RoleAdmin
	return u, nil
}
