// internal/httpserver/game.go
//
// Game endpoints: create, join, guess, leave, current, history, available.
//
// The flow is two-phase: POST /game opens a pending round (por empezar),
// POST /game/join activates it (en progreso). Guesses only apply to the
// activated game. All notifications are queued after the state change has
// committed; delivery failures never fail these requests.

package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palabra-game/palabra-server/internal/game"
	"github.com/palabra-game/palabra-server/internal/model"
	"github.com/palabra-game/palabra-server/internal/notify"
	"github.com/palabra-game/palabra-server/internal/store"
)

// gameSummary is the client-facing shape of a game. The secret word is never
// serialized (json:"-" on the model), but the summary keeps the contract
// explicit for the create/join responses.
type gameSummary struct {
	ID                uint   `json:"id"`
	UserID            uint   `json:"user_id"`
	Status            string `json:"status"`
	RemainingAttempts int    `json:"remaining_attempts"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

func summarize(g *model.Game) gameSummary {
	return gameSummary{
		ID:                g.ID,
		UserID:            g.UserID,
		Status:            g.Status,
		RemainingAttempts: g.RemainingAttempts,
		CreatedAt:         g.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCreateGame opens a pending game with a freshly sourced secret word.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)

	word, err := s.words.Pick(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("pick secret word")
		writeMessage(w, http.StatusInternalServerError, "No se pudo obtener una palabra para la partida.")
		return
	}

	g, err := s.store.CreateGame(r.Context(), me.ID, word, s.cfg.MaxAttempts)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeMessage(w, http.StatusBadRequest, "Ya tienes una partida activa.")
			return
		}
		log.Error().Err(err).Uint("user", me.ID).Msg("create game")
		writeMessage(w, http.StatusInternalServerError, "No se pudo crear la partida.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Partida creada exitosamente.",
		"game":    summarize(g),
	})
}

type joinGameReq struct {
	GameID uint `json:"game_id"`
}

// handleJoinGame activates one of the caller's pending games.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	var req joinGameReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.GameID == 0 {
		writeFieldErrors(w, map[string]string{"game_id": "El campo game_id es obligatorio."})
		return
	}

	g, err := s.store.JoinGame(r.Context(), me.ID, req.GameID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeMessage(w, http.StatusNotFound, "La partida no existe.")
		case errors.Is(err, store.ErrPermission):
			writeMessage(w, http.StatusForbidden, "No tienes permiso para unirte a esta partida.")
		case errors.Is(err, store.ErrConflict):
			writeMessage(w, http.StatusBadRequest, "Ya tienes una partida activa.")
		default:
			log.Error().Err(err).Uint("user", me.ID).Msg("join game")
			writeMessage(w, http.StatusInternalServerError, "No se pudo unir a la partida.")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Te has unido a la partida.",
		"game":    summarize(g),
	})
}

type guessReq struct {
	GameID uint   `json:"game_id"`
	Word   string `json:"word"`
}

// handleGuess evaluates a guess against the caller's game, commits the state
// change plus attempt record, then queues the outcome notifications.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)
	var req guessReq
	if !decodeJSON(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if req.GameID == 0 {
		fields["game_id"] = "El campo game_id es obligatorio."
	}
	if req.Word == "" {
		fields["word"] = "El campo palabra es obligatorio."
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	g, err := s.store.GameByID(r.Context(), req.GameID)
	if err != nil || !g.IsActive {
		writeMessage(w, http.StatusNotFound, "El juego no está activo o no existe.")
		return
	}
	if g.UserID != me.ID {
		writeMessage(w, http.StatusForbidden, "No tienes permiso para realizar esta acción.")
		return
	}

	// Normalize once so the attempt record matches what was evaluated.
	guess := strings.ToLower(strings.TrimSpace(req.Word))
	res, err := game.Apply(g, guess)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrWordLength):
			writeMessage(w, http.StatusBadRequest,
				fmt.Sprintf("La palabra debe tener exactamente %d caracteres.", len(g.Word)))
		default:
			writeMessage(w, http.StatusNotFound, "El juego no está activo o no existe.")
		}
		return
	}

	if err := s.store.CommitGuess(r.Context(), g, guess, res.Correct); err != nil {
		log.Error().Err(err).Uint("game", g.ID).Msg("commit guess")
		writeMessage(w, http.StatusInternalServerError, "No se pudo registrar el intento.")
		return
	}

	switch {
	case res.Won:
		s.queueSummary(r, me, g, "Ganado")
		s.notifier.Message(me.Phone, "¡Felicidades! Has adivinado la palabra: "+g.Word)
		writeMessage(w, http.StatusOK, "¡Correcto! Ganaste el juego.")
	case res.Lost:
		s.queueSummary(r, me, g, "Perdido")
		s.notifier.Message(me.Phone, "Has perdido la partida. La palabra era: "+g.Word)
		writeMessage(w, http.StatusOK, "Has perdido el juego.")
	default:
		s.notifier.Message(me.Phone,
			fmt.Sprintf("Intento: %s | Pistas: %s", guess, res.Hint))
		writeJSON(w, http.StatusOK, map[string]any{
			"message":            "Intenta de nuevo.",
			"hint":               res.Hint,
			"remaining_attempts": res.Remaining,
		})
	}
}

// handleLeaveGame abandons the caller's active game.
func (s *Server) handleLeaveGame(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)

	g, err := s.store.AbandonActive(r.Context(), me.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "No tienes ninguna partida activa para abandonar.")
			return
		}
		log.Error().Err(err).Uint("user", me.ID).Msg("abandon game")
		writeMessage(w, http.StatusInternalServerError, "No se pudo abandonar la partida.")
		return
	}

	s.queueSummary(r, me, g, "Abandonado")
	s.notifier.Message(me.Phone, "Has abandonado la partida. La palabra oculta era: "+g.Word)
	writeMessage(w, http.StatusOK, "Has abandonado la partida.")
}

// handleCurrentGame returns the caller's active game with its attempts.
func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)

	g, err := s.store.ActiveGame(r.Context(), me.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "No tienes ninguna partida activa.")
			return
		}
		log.Error().Err(err).Uint("user", me.ID).Msg("load current game")
		writeMessage(w, http.StatusInternalServerError, "No se pudo consultar la partida.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"game": g})
}

// handleHistory returns every game the caller has played.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)

	games, err := s.store.History(r.Context(), me.ID)
	if err != nil {
		log.Error().Err(err).Uint("user", me.ID).Msg("load game history")
		writeMessage(w, http.StatusInternalServerError, "No se pudo consultar el historial.")
		return
	}
	if len(games) == 0 {
		writeMessage(w, http.StatusNotFound, "No tienes partidas registradas.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

// handleAvailableGames lists the caller's pending (joinable) games.
func (s *Server) handleAvailableGames(w http.ResponseWriter, r *http.Request) {
	me, _ := currentUser(r)

	games, err := s.store.AvailableGames(r.Context(), me.ID)
	if err != nil {
		log.Error().Err(err).Uint("user", me.ID).Msg("load available games")
		writeMessage(w, http.StatusInternalServerError, "No se pudo consultar las partidas disponibles.")
		return
	}
	summaries := make([]gameSummary, 0, len(games))
	for i := range games {
		summaries = append(summaries, summarize(&games[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": summaries})
}

// queueSummary loads the finished game's attempts and queues the chat-webhook
// report. Best effort: a load failure is logged and the report skipped.
func (s *Server) queueSummary(r *http.Request, me *authUser, g *model.Game, outcome string) {
	attempts, err := s.store.AttemptsForGame(r.Context(), g.ID)
	if err != nil {
		log.Warn().Err(err).Uint("game", g.ID).Msg("load attempts for summary")
		return
	}
	lines := make([]notify.AttemptLine, 0, len(attempts))
	for _, a := range attempts {
		lines = append(lines, notify.AttemptLine{Word: a.Word, Correct: a.IsCorrect})
	}
	s.notifier.GameSummary(notify.Summary{
		UserName: me.Name,
		Outcome:  outcome,
		Word:     g.Word,
		Attempts: lines,
	})
}
