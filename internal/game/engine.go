// internal/game/engine.go
//
// Core rules for a single word-guess round.
// Responsibilities:
//   - Evaluate a guess against the secret word, producing a hint string.
//   - Apply state transitions: en progreso → ganada/perdida.
//   - Mark a game abandoned.
//
// Matching is position-only: a hint character is either the secret letter
// (exact position match) or '-'. Letters present elsewhere in the word are
// not distinguished from absent letters.

package game

import (
	"errors"
	"strings"
)

// Placeholder is the hint character for a non-matching position.
const Placeholder = '-'

// ErrWordLength rejects a guess whose length differs from the secret word.
var ErrWordLength = errors.New("guess length does not match the secret word")

// ErrFinished rejects guesses against a game that is already over.
var ErrFinished = errors.New("game is not active")

// Result is the outcome of applying one guess.
type Result struct {
	Hint      string // per-position hint, same length as the secret word
	Correct   bool   // exact match
	Won       bool   // game ended in a win
	Lost      bool   // game ended by exhausting the attempt budget
	Remaining int    // attempts left after this guess
}

// Evaluate computes the position-only hint for guess against secret.
// Deterministic: the same (secret, guess) pair always yields the same hint.
func Evaluate(secret, guess string) (string, error) {
	if len(guess) != len(secret) {
		return "", ErrWordLength
	}
	var b strings.Builder
	b.Grow(len(secret))
	for i := 0; i < len(secret); i++ {
		if guess[i] == secret[i] {
			b.WriteByte(secret[i])
		} else {
			b.WriteByte(Placeholder)
		}
	}
	return b.String(), nil
}
