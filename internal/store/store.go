// internal/store/store.go
//
// GORM-backed persistence for the Palabra server. One Store instance wraps
// the shared *gorm.DB; per-entity operations live in users.go, games.go and
// sessions in this file.

package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/palabra-game/palabra-server/internal/model"
)

// Store is the persistence layer.
type Store struct {
	db *gorm.DB
}

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateSession records an issued token by jti. Expired rows are purged on
// the way in so the table does not grow without bound.
func (s *Store) CreateSession(ctx context.Context, jti string, userID uint, expiresAt time.Time) error {
	if err := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now().UTC()).
		Delete(&model.Session{}).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&model.Session{
		ID:        jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}).Error
}

// SessionValid reports whether jti is a live, unexpired session.
func (s *Store) SessionValid(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND expires_at > ?", jti, time.Now().UTC()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteSession revokes jti. Deleting an already-revoked session is a no-op.
func (s *Store) DeleteSession(ctx context.Context, jti string) error {
	return s.db.WithContext(ctx).Delete(&model.Session{}, "id = ?", jti).Error
}
