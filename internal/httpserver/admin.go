// internal/httpserver/admin.go
//
// Admin endpoints. Role enforcement happens once, in the requireRole
// middleware wired in server.go; handlers here only do their operation.

package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/palabra-game/palabra-server/internal/store"
)

type adminUserReq struct {
	UserID uint `json:"user_id"`
}

// handleAdminGames lists every game with its owner and attempts.
func (s *Server) handleAdminGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.AllGames(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list all games")
		writeMessage(w, http.StatusInternalServerError, "No se pudo consultar los juegos.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

// handleAdminActivate re-activates a user account. Already-active users are
// a conflict, mirroring deactivate's idempotency rule.
func (s *Server) handleAdminActivate(w http.ResponseWriter, r *http.Request) {
	var req adminUserReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		writeFieldErrors(w, map[string]string{"user_id": "El campo user_id es obligatorio."})
		return
	}
	u, err := s.store.ActivateUser(r.Context(), req.UserID)
	if err != nil {
		s.writeAdminStoreError(w, err, "El usuario ya está activado.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Usuario activado exitosamente.",
		"user":    u,
	})
}

// handleAdminDeactivate disables a user account.
func (s *Server) handleAdminDeactivate(w http.ResponseWriter, r *http.Request) {
	var req adminUserReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		writeFieldErrors(w, map[string]string{"user_id": "El campo user_id es obligatorio."})
		return
	}
	u, err := s.store.DeactivateUser(r.Context(), req.UserID)
	if err != nil {
		s.writeAdminStoreError(w, err, "El usuario ya está desactivado.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Usuario desactivado exitosamente.",
		"user":    u,
	})
}

// handleAdminPromote grants the admin role to an active player.
func (s *Server) handleAdminPromote(w http.ResponseWriter, r *http.Request) {
	var req adminUserReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		writeFieldErrors(w, map[string]string{"user_id": "El campo user_id es obligatorio."})
		return
	}
	u, err := s.store.PromoteUser(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeMessage(w, http.StatusNotFound, "El usuario no existe.")
		case errors.Is(err, store.ErrConflict) && strings.Contains(err.Error(), "deactivated"):
			writeMessage(w, http.StatusBadRequest, "No se puede promover a administrador a un usuario desactivado.")
		case errors.Is(err, store.ErrConflict):
			writeMessage(w, http.StatusBadRequest, "El usuario ya es administrador.")
		default:
			log.Error().Err(err).Uint("user", req.UserID).Msg("promote user")
			writeMessage(w, http.StatusInternalServerError, "No se pudo promover al usuario.")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "El usuario ha sido promovido a administrador.",
		"user":    u,
	})
}

// writeAdminStoreError maps activate/deactivate store errors onto the
// product's responses.
func (s *Server) writeAdminStoreError(w http.ResponseWriter, err error, conflictMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "El usuario no existe.")
	case errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusBadRequest, conflictMsg)
	default:
		log.Error().Err(err).Msg("admin user update")
		writeMessage(w, http.StatusInternalServerError, "No se pudo actualizar al usuario.")
	}
}
