// internal/store/games.go
//
// Game lifecycle persistence. The one-active-game-per-user invariant is
// enforced twice: a check inside the transaction and a partial unique index
// (see internal/database) that catches concurrent creates the check misses.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/palabra-game/palabra-server/internal/model"
)

// CreateGame opens a new pending game for userID with the given secret word
// and attempt budget. ErrConflict when the user already has an active or
// pending game.
func (s *Store) CreateGame(ctx context.Context, userID uint, word string, attempts int) (*model.Game, error) {
	g := &model.Game{
		UserID:            userID,
		Word:              word,
		IsActive:          false,
		RemainingAttempts: attempts,
		Status:            model.StatusPending,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Game{}).
			Where("user_id = ? AND (is_active = ? OR status = ?)", userID, true, model.StatusPending).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("user %d already has an open game: %w", userID, ErrConflict)
		}
		return tx.Create(g).Error
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// JoinGame moves a pending game to en progreso and makes it the caller's
// active game.
//
// Failure modes:
//   - ErrNotFound: no such game.
//   - ErrPermission: the game belongs to someone else or is not pending.
//   - ErrConflict: the caller already holds an active game.
func (s *Store) JoinGame(ctx context.Context, userID, gameID uint) (*model.Game, error) {
	var g model.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&g, gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("game %d: %w", gameID, ErrNotFound)
			}
			return err
		}
		if g.UserID != userID {
			return fmt.Errorf("game %d belongs to another user: %w", gameID, ErrPermission)
		}
		if g.Status != model.StatusPending {
			return fmt.Errorf("game %d is not pending: %w", gameID, ErrPermission)
		}
		var active int64
		if err := tx.Model(&model.Game{}).
			Where("user_id = ? AND is_active = ? AND id <> ?", userID, true, gameID).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("user %d already has an active game: %w", userID, ErrConflict)
		}
		g.IsActive = true
		g.Status = model.StatusInProgress
		g.ActivePlayerID = &userID
		if err := tx.Save(&g).Error; err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("user %d already has an active game: %w", userID, ErrConflict)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GameByID loads a game without associations.
func (s *Store) GameByID(ctx context.Context, id uint) (*model.Game, error) {
	var g model.Game
	err := s.db.WithContext(ctx).First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ActiveGame returns the caller's active game with its attempts.
func (s *Store) ActiveGame(ctx context.Context, userID uint) (*model.Game, error) {
	var g model.Game
	err := s.db.WithContext(ctx).Preload("Attempts").
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no active game for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CommitGuess persists an evaluated guess: the mutated game row and its
// attempt record land in one transaction, so an attempt can never exist
// without its counter/status change and vice versa.
func (s *Store) CommitGuess(ctx context.Context, g *model.Game, word string, correct bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(g).Select("is_active", "remaining_attempts", "status").
			Updates(map[string]any{
				"is_active":          g.IsActive,
				"remaining_attempts": g.RemainingAttempts,
				"status":             g.Status,
			}).Error; err != nil {
			return err
		}
		return tx.Create(&model.Attempt{
			GameID:    g.ID,
			Word:      word,
			IsCorrect: correct,
		}).Error
	})
}

// AbandonActive closes the caller's active game: flips it to abandonada and
// appends the synthetic abandon attempt. ErrNotFound when there is no active
// game to abandon.
func (s *Store) AbandonActive(ctx context.Context, userID uint) (*model.Game, error) {
	var g model.Game
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND is_active = ?", userID, true).First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no active game for user %d: %w", userID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		g.IsActive = false
		g.Status = model.StatusAbandoned
		if err := tx.Model(&g).Select("is_active", "status").
			Updates(map[string]any{"is_active": false, "status": model.StatusAbandoned}).Error; err != nil {
			return err
		}
		return tx.Create(&model.Attempt{
			GameID:    g.ID,
			Word:      model.AbandonWord,
			IsCorrect: false,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// History returns every game the user owns, attempts included, newest first.
func (s *Store) History(ctx context.Context, userID uint) ([]model.Game, error) {
	var games []model.Game
	err := s.db.WithContext(ctx).Preload("Attempts").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// AvailableGames lists the caller's own pending games: join is only
// permitted on games the caller created, so that is the joinable set.
func (s *Store) AvailableGames(ctx context.Context, userID uint) ([]model.Game, error) {
	var games []model.Game
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// AllGames is the admin listing: every game with its owner and attempts.
func (s *Store) AllGames(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	err := s.db.WithContext(ctx).Preload("User").Preload("Attempts").
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// AttemptsForGame loads a game's attempts oldest first (summary order).
func (s *Store) AttemptsForGame(ctx context.Context, gameID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at ASC").
		Find(&attempts).Error
	return attempts, err
}
