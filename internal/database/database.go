// internal/database/database.go
//
// Database bootstrap for the Palabra server.
// Responsibilities:
//   - Opening the SQLite database through GORM with safe defaults
//     (WAL, busy timeout, foreign keys).
//   - Running schema migrations (GORM AutoMigrate plus the partial unique
//     index backing the one-active-game-per-user invariant).

package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/palabra-game/palabra-server/internal/model"
)

// Open opens (and creates if missing) the SQLite database at dsn.
// Ensures the parent directory exists for relative DSNs (e.g. ./data/app.db).
func Open(dsn string) (*gorm.DB, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	connector := dsn
	if !strings.Contains(connector, "?") {
		connector += "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := gorm.Open(sqlite.Open(connector), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Exec(`PRAGMA foreign_keys = ON`).Error; err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. AutoMigrate is idempotent, and the partial
// index cannot be expressed with struct tags, so it is created by hand.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Game{},
		&model.Attempt{},
		&model.Session{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// One active game per user, enforced even under concurrent creates.
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_games_one_active
		 ON games(user_id) WHERE is_active`,
	).Error; err != nil {
		return fmt.Errorf("create active-game index: %w", err)
	}
	return nil
}
