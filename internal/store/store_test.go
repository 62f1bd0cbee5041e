package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/palabra-game/palabra-server/internal/database"
	"github.com/palabra-game/palabra-server/internal/game"
	"github.com/palabra-game/palabra-server/internal/model"
	"github.com/palabra-game/palabra-server/internal/store"
)

var dbSeq atomic.Int64

// newTestStoreDB opens a fresh in-memory SQLite database with the production
// schema applied, returning the raw handle alongside the store for tests
// that inspect rows directly.
func newTestStoreDB(t *testing.T) (*store.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return store.New(db), db
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, _ := newTestStoreDB(t)
	return s
}

func newTestUser(t *testing.T, s *store.Store, phone string) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "Ana",
		Phone:        phone,
		PasswordHash: "x",
		Role:         model.RolePlayer,
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// ------------------------------- users -------------------------------------

func TestCreateUserDuplicatePhone(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "+521")

	err := s.CreateUser(context.Background(), &model.User{
		Name: "Eva", Phone: "+521", PasswordHash: "y", Role: model.RolePlayer,
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestActivateDeactivateIdempotencyConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	_, err := s.ActivateUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrConflict, "already active")

	got, err := s.DeactivateUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = s.DeactivateUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrConflict, "already deactivated")

	got, err = s.ActivateUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestActivateUnknownUser(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ActivateUser(context.Background(), 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPromoteRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, s, "+521")
	promoted, err := s.PromoteUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = s.PromoteUser(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrConflict, "already admin")

	inactive := newTestUser(t, s, "+522")
	_, err = s.DeactivateUser(ctx, inactive.ID)
	require.NoError(t, err)
	_, err = s.PromoteUser(ctx, inactive.ID)
	assert.ErrorIs(t, err, store.ErrConflict, "deactivated user cannot be promoted")
}

// ------------------------------- sessions ----------------------------------

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	require.NoError(t, s.CreateSession(ctx, "jti-1", u.ID, time.Now().Add(time.Hour)))
	live, err := s.SessionValid(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, live)

	require.NoError(t, s.DeleteSession(ctx, "jti-1"))
	live, err = s.SessionValid(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, live, "deleted session must be invalid")

	require.NoError(t, s.CreateSession(ctx, "jti-2", u.ID, time.Now().Add(-time.Minute)))
	live, err = s.SessionValid(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, live, "expired session must be invalid")
}

func TestCreateSessionPurgesExpired(t *testing.T) {
	s, db := newTestStoreDB(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	require.NoError(t, s.CreateSession(ctx, "jti-old", u.ID, time.Now().Add(-time.Minute)))
	require.NoError(t, s.CreateSession(ctx, "jti-new", u.ID, time.Now().Add(time.Hour)))

	var count int64
	require.NoError(t, db.Model(&model.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "expired rows are dropped on insert")

	live, err := s.SessionValid(ctx, "jti-new")
	require.NoError(t, err)
	assert.True(t, live)
}

// -------------------------------- games ------------------------------------

func TestCreateGameStartsPending(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "+521")

	g, err := s.CreateGame(context.Background(), u.ID, "gato", 5)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, g.Status)
	assert.False(t, g.IsActive)
	assert.Equal(t, 5, g.RemainingAttempts)
}

func TestCreateGameConflictsWithOpenGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	_, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)

	// Pending game blocks a second create.
	_, err = s.CreateGame(ctx, u.ID, "casa", 5)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestJoinGameActivates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	g, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)

	joined, err := s.JoinGame(ctx, u.ID, g.ID)
	require.NoError(t, err)
	assert.True(t, joined.IsActive)
	assert.Equal(t, model.StatusInProgress, joined.Status)
	require.NotNil(t, joined.ActivePlayerID)
	assert.Equal(t, u.ID, *joined.ActivePlayerID)
}

func TestJoinGamePermissionAndConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := newTestUser(t, s, "+521")
	other := newTestUser(t, s, "+522")

	g, err := s.CreateGame(ctx, owner.ID, "gato", 5)
	require.NoError(t, err)

	_, err = s.JoinGame(ctx, other.ID, g.ID)
	assert.ErrorIs(t, err, store.ErrPermission, "not the owner")

	_, err = s.JoinGame(ctx, owner.ID, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.JoinGame(ctx, owner.ID, g.ID)
	require.NoError(t, err)

	_, err = s.JoinGame(ctx, owner.ID, g.ID)
	assert.ErrorIs(t, err, store.ErrPermission, "no longer pending")
}

func TestOneActiveGamePerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	g, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)
	_, err = s.JoinGame(ctx, u.ID, g.ID)
	require.NoError(t, err)

	// An active game blocks creating another.
	_, err = s.CreateGame(ctx, u.ID, "casa", 5)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestConcurrentJoinsKeepOneActiveGame(t *testing.T) {
	// File-backed DB so the racing transactions exercise the real WAL and
	// busy-timeout path rather than shared-cache table locks.
	db, err := database.Open(filepath.Join(t.TempDir(), "race.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	s := store.New(db)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	// Seed several pending games directly; CreateGame itself refuses a
	// second open game, which is not the path under test here.
	games := make([]model.Game, 8)
	for i := range games {
		games[i] = model.Game{
			UserID:            u.ID,
			Word:              "gato",
			RemainingAttempts: 5,
			Status:            model.StatusPending,
		}
		require.NoError(t, db.Create(&games[i]).Error)
	}

	var wg sync.WaitGroup
	var joined atomic.Int64
	for i := range games {
		wg.Add(1)
		go func(gameID uint) {
			defer wg.Done()
			if _, err := s.JoinGame(ctx, u.ID, gameID); err == nil {
				joined.Add(1)
			}
		}(games[i].ID)
	}
	wg.Wait()

	var active int64
	require.NoError(t, db.Model(&model.Game{}).
		Where("user_id = ? AND is_active = ?", u.ID, true).
		Count(&active).Error)
	assert.Equal(t, int64(1), active, "exactly one game may be active")
	assert.Equal(t, active, joined.Load(), "every successful join must show as an active row")
}

func TestCommitGuessPersistsStateAndAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	created, err := s.CreateGame(ctx, u.ID, "casa", 2)
	require.NoError(t, err)
	g, err := s.JoinGame(ctx, u.ID, created.ID)
	require.NoError(t, err)

	res, err := game.Apply(g, "mesa")
	require.NoError(t, err)
	require.False(t, res.Lost)
	require.NoError(t, s.CommitGuess(ctx, g, "mesa", res.Correct))

	reloaded, err := s.ActiveGame(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.RemainingAttempts)
	require.Len(t, reloaded.Attempts, 1)
	assert.Equal(t, "mesa", reloaded.Attempts[0].Word)
	assert.False(t, reloaded.Attempts[0].IsCorrect)
}

func TestCommitLosingGuessClosesGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	created, err := s.CreateGame(ctx, u.ID, "casa", 1)
	require.NoError(t, err)
	g, err := s.JoinGame(ctx, u.ID, created.ID)
	require.NoError(t, err)

	res, err := game.Apply(g, "mesa")
	require.NoError(t, err)
	require.True(t, res.Lost)
	require.NoError(t, s.CommitGuess(ctx, g, "mesa", res.Correct))

	_, err = s.ActiveGame(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "lost game is no longer active")

	history, err := s.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StatusLost, history[0].Status)
	assert.Equal(t, 0, history[0].RemainingAttempts)
}

func TestAbandonActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	_, err := s.AbandonActive(ctx, u.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing to abandon")

	created, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)
	_, err = s.JoinGame(ctx, u.ID, created.ID)
	require.NoError(t, err)

	g, err := s.AbandonActive(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAbandoned, g.Status)

	attempts, err := s.AttemptsForGame(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 1, "abandon records exactly one synthetic attempt")
	assert.Equal(t, model.AbandonWord, attempts[0].Word)
	assert.False(t, attempts[0].IsCorrect)

	// Abandoned game frees the slot for a new one.
	_, err = s.CreateGame(ctx, u.ID, "casa", 5)
	assert.NoError(t, err)
}

func TestAvailableGamesListsOwnPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")
	other := newTestUser(t, s, "+522")

	g, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)
	_, err = s.CreateGame(ctx, other.ID, "casa", 5)
	require.NoError(t, err)

	games, err := s.AvailableGames(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, g.ID, games[0].ID)

	_, err = s.JoinGame(ctx, u.ID, g.ID)
	require.NoError(t, err)
	games, err = s.AvailableGames(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, games, "joined game is no longer available")
}

func TestAllGamesIncludesOwnerAndAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, s, "+521")

	created, err := s.CreateGame(ctx, u.ID, "gato", 5)
	require.NoError(t, err)
	g, err := s.JoinGame(ctx, u.ID, created.ID)
	require.NoError(t, err)
	res, err := game.Apply(g, "goto")
	require.NoError(t, err)
	require.NoError(t, s.CommitGuess(ctx, g, "goto", res.Correct))

	games, err := s.AllGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.NotNil(t, games[0].User)
	assert.Equal(t, "+521", games[0].User.Phone)
	assert.Len(t, games[0].Attempts, 1)
}
