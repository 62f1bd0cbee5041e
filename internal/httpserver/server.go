// internal/httpserver/server.go
//
// HTTP server wiring for the Palabra backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", registration/verification/login and
//     code-gated admin registration.
//   - Token-gated game endpoints: create/join/guess/leave/current/history/
//     available.
//   - Admin endpoints behind a single requireRole(admin) middleware.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Authorization is uniform: requireAuth validates the JWT and its live
//     session row; requireRole only checks the role already in context.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/palabra-game/palabra-server/internal/config"
	"github.com/palabra-game/palabra-server/internal/model"
	"github.com/palabra-game/palabra-server/internal/notify"
	"github.com/palabra-game/palabra-server/internal/store"
	"github.com/palabra-game/palabra-server/internal/verify"
	"github.com/palabra-game/palabra-server/internal/words"
)

// Server bundles router, persistence and the outbound collaborators.
type Server struct {
	r        *chi.Mux
	cfg      *config.Config
	store    *store.Store
	words    *words.Source
	notifier *notify.Notifier
	codes    *verify.Codes
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, st *store.Store, ws *words.Source, n *notify.Notifier, codes *verify.Codes) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg,
		store:    st,
		words:    ws,
		notifier: n,
		codes:    codes,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromConfig(cfg.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"palabra-server","endpoints":["/health","POST /register","POST /login","POST /game","/admin/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// --- public ---
	s.r.Post("/register", s.handleRegister)
	s.r.Post("/verify", s.handleVerify)
	s.r.Post("/login", s.handleLogin)
	s.r.Post("/admin/register", s.handleAdminRegister)

	// --- token gated ---
	s.r.With(s.requireAuth()).Post("/logout", s.handleLogout)
	s.r.With(s.requireAuth()).Post("/game", s.handleCreateGame)
	s.r.With(s.requireAuth()).Post("/game/join", s.handleJoinGame)
	s.r.With(s.requireAuth()).Post("/game/guess", s.handleGuess)
	s.r.With(s.requireAuth()).Post("/game/leave", s.handleLeaveGame)
	s.r.With(s.requireAuth()).Get("/game/current", s.handleCurrentGame)
	s.r.With(s.requireAuth()).Get("/game/history", s.handleHistory)
	s.r.With(s.requireAuth()).Get("/game/available", s.handleAvailableGames)

	// --- admin gated ---
	admin := s.r.With(s.requireAuth(), s.requireRole(model.RoleAdmin))
	admin.Get("/admin/games", s.handleAdminGames)
	admin.Post("/admin/activate", s.handleAdminActivate)
	admin.Post("/admin/desactivate", s.handleAdminDeactivate)
	admin.Post("/admin/promote", s.handleAdminPromote)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for a single origin.
func corsFromConfig(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ responses ----------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMessage writes the product's standard {"message": ...} envelope.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeFieldErrors writes a validation failure with per-field messages.
func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"message": "Datos inválidos.",
		"errors":  fields,
	})
}

// decodeJSON decodes the request body into v, reporting malformed JSON as a
// validation failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Cuerpo de la petición inválido.")
		return false
	}
	return true
}
