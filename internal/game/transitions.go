// internal/game/transitions.go
//
// State transitions for a game. These mutate the in-memory model only;
// persistence (game row + attempt row in one transaction) is the store's job.

package game

import (
	"strings"

	"github.com/palabra-game/palabra-server/internal/model"
)

// Apply validates and scores a guess, mutating g.
//
// Transitions:
//   - Exact match → ganada, inactive, regardless of remaining attempts.
//   - Otherwise the attempt counter is decremented; at zero → perdida,
//     inactive. The counter never goes below zero.
func Apply(g *model.Game, guess string) (Result, error) {
	if !g.IsActive || g.Finished() {
		return Result{}, ErrFinished
	}
	guess = strings.ToLower(strings.TrimSpace(guess))

	hint, err := Evaluate(g.Word, guess)
	if err != nil {
		return Result{}, err
	}

	res := Result{Hint: hint, Correct: guess == g.Word}
	switch {
	case res.Correct:
		g.IsActive = false
		g.Status = model.StatusWon
		res.Won = true
	default:
		if g.RemainingAttempts > 0 {
			g.RemainingAttempts--
		}
		if g.RemainingAttempts == 0 {
			g.IsActive = false
			g.Status = model.StatusLost
			res.Lost = true
		}
	}
	res.Remaining = g.RemainingAttempts
	return res, nil
}

// Abandon marks g abandoned and inactive. Returns ErrFinished when the game
// is not currently active.
func Abandon(g *model.Game) error {
	if !g.IsActive || g.Finished() {
		return ErrFinished
	}
	g.IsActive = false
	g.Status = model.StatusAbandoned
	return nil
}
