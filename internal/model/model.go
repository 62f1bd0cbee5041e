// internal/model/model.go
//
// GORM entities for the Palabra server: users, games, attempts and sessions.
// Status values are the product's canonical Spanish strings and are stored
// verbatim; do not translate them, clients match on them.

package model

import "time"

// Roles a user can hold.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// Game status values.
const (
	StatusPending    = "por empezar"
	StatusInProgress = "en progreso"
	StatusWon        = "ganada"
	StatusLost       = "perdida"
	StatusAbandoned  = "abandonada"
)

// AbandonWord is the synthetic attempt recorded when a player leaves a game.
const AbandonWord = "abandonado"

// User is an account holder. Accounts are created inactive and activated by
// phone verification (or created active via the admin registration code).
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Phone        string    `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	PasswordHash string    `gorm:"size:72;not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:player" json:"role"`
	IsActive     bool      `gorm:"not null;default:false" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Game is one round of the word-guess game. At most one game per user may
// have IsActive=true; a partial unique index enforces this at the DB level.
type Game struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"index;not null" json:"user_id"`
	User              *User     `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Word              string    `gorm:"size:16;not null" json:"-"`
	IsActive          bool      `gorm:"not null;default:false" json:"is_active"`
	RemainingAttempts int       `gorm:"not null" json:"remaining_attempts"`
	Status            string    `gorm:"size:16;not null;default:'por empezar'" json:"status"`
	ActivePlayerID    *uint     `json:"active_player_id,omitempty"`
	Attempts          []Attempt `gorm:"constraint:OnDelete:CASCADE" json:"attempts,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Finished reports whether the game can no longer accept guesses.
func (g *Game) Finished() bool {
	return g.Status == StatusWon || g.Status == StatusLost || g.Status == StatusAbandoned
}

// Attempt is an immutable record of a single guess (or abandon event).
type Attempt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GameID    uint      `gorm:"index;not null" json:"game_id"`
	Word      string    `gorm:"size:16;not null" json:"word"`
	IsCorrect bool      `gorm:"not null;default:false" json:"is_correct"`
	CreatedAt time.Time `json:"created_at"`
}

// Session records an issued token by its jti claim. Logout deletes the row,
// which revokes the token server-side before its expiry.
type Session struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
