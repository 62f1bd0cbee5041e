// internal/httpserver/auth.go
//
// Registration, phone verification, login/logout and the token middleware.
// Tokens are HS256 JWTs carrying the user id, role and a uuid jti; the jti is
// recorded in the sessions table so logout revokes it server-side.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/palabra-game/palabra-server/internal/model"
	"github.com/palabra-game/palabra-server/internal/store"
)

// authUser is placed into request context by requireAuth.
type authUser struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
	jti   string
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// ----------------------------- registration --------------------------------

type registerReq struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// validateRegistration mirrors the product's field rules: name and phone are
// required and bounded, passwords need at least 6 characters.
func validateRegistration(req registerReq) map[string]string {
	fields := map[string]string{}
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	switch {
	case name == "":
		fields["name"] = "El campo nombre es obligatorio."
	case len(name) > 255:
		fields["name"] = "El nombre no puede exceder 255 caracteres."
	}
	switch {
	case phone == "":
		fields["phone"] = "El campo teléfono es obligatorio."
	case len(phone) > 15:
		fields["phone"] = "El teléfono no puede exceder 15 caracteres."
	}
	switch {
	case req.Password == "":
		fields["password"] = "El campo contraseña es obligatorio."
	case len(req.Password) < 6:
		fields["password"] = "La contraseña debe tener al menos 6 caracteres."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// handleRegister creates an unverified account and sends the verification
// code over WhatsApp. The code send is the point of the endpoint, so a
// provider failure is surfaced as an upstream error.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := validateRegistration(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "No se pudo procesar la contraseña.")
		return
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		Role:         model.RolePlayer,
		IsActive:     false,
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeFieldErrors(w, map[string]string{"phone": "El teléfono ya está registrado."})
			return
		}
		log.Error().Err(err).Msg("create user")
		writeMessage(w, http.StatusInternalServerError, "No se pudo registrar el usuario.")
		return
	}

	code, err := s.codes.Issue(u.Phone)
	if err != nil {
		log.Error().Err(err).Msg("issue verification code")
		writeMessage(w, http.StatusInternalServerError, "No se pudo generar el código de verificación.")
		return
	}
	if err := s.sendVerificationCode(r.Context(), u.Phone, code); err != nil {
		log.Error().Err(err).Str("phone", u.Phone).Msg("send verification code")
		writeMessage(w, http.StatusInternalServerError, "Error al enviar el mensaje de verificación.")
		return
	}
	writeMessage(w, http.StatusOK, "Código enviado exitosamente por WhatsApp.")
}

// sendVerificationCode delivers the code synchronously: registration is the
// one flow where the caller must know delivery failed.
func (s *Server) sendVerificationCode(ctx context.Context, phone, code string) error {
	return s.notifier.MessageNow(ctx, phone,
		"Tu código de verificación es: "+code+". Por favor, no lo compartas con nadie.")
}

// ----------------------------- verification --------------------------------

type verifyReq struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// handleVerify consumes a verification code and activates the account.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if !decodeJSON(w, r, &req) {
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Phone) == "" {
		fields["phone"] = "El campo teléfono es obligatorio."
	}
	if strings.TrimSpace(req.Code) == "" {
		fields["code"] = "El campo código es obligatorio."
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	u, err := s.store.UserByPhone(r.Context(), strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "El teléfono no está registrado.")
			return
		}
		log.Error().Err(err).Msg("lookup user for verification")
		writeMessage(w, http.StatusInternalServerError, "Error al verificar el código.")
		return
	}

	if !s.codes.Consume(u.Phone, strings.TrimSpace(req.Code)) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":  "Código inválido o expirado.",
			"verified": false,
		})
		return
	}
	if !u.IsActive {
		if _, err := s.store.ActivateUser(r.Context(), u.ID); err != nil {
			log.Error().Err(err).Uint("user", u.ID).Msg("activate verified user")
			writeMessage(w, http.StatusInternalServerError, "Error al verificar el código.")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Número verificado correctamente.",
		"verified": true,
	})
}

// ------------------------------- sessions ----------------------------------

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// handleLogin authenticates a verified user and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := s.store.UserByPhone(r.Context(), strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "El teléfono no está registrado.")
			return
		}
		log.Error().Err(err).Msg("lookup user for login")
		writeMessage(w, http.StatusInternalServerError, "Error al iniciar sesión.")
		return
	}
	if !u.IsActive {
		writeMessage(w, http.StatusForbidden, "El número no ha sido verificado.")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "Contraseña incorrecta.")
		return
	}

	token, err := s.issueToken(r.Context(), u)
	if err != nil {
		log.Error().Err(err).Uint("user", u.ID).Msg("issue session token")
		writeMessage(w, http.StatusInternalServerError, "Error al iniciar sesión.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login exitoso.",
		"token":   token,
		"user":    u,
	})
}

// handleLogout revokes the caller's session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	me, ok := currentUser(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := s.store.DeleteSession(r.Context(), me.jti); err != nil {
		log.Error().Err(err).Uint("user", me.ID).Msg("delete session")
		writeMessage(w, http.StatusInternalServerError, "Error al cerrar sesión.")
		return
	}
	writeMessage(w, http.StatusOK, "Sesión cerrada exitosamente.")
}

// --------------------------- admin registration -----------------------------

type adminRegisterReq struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	AdminCode string `json:"admin_code"`
}

// handleAdminRegister creates an active admin account, gated by the
// configured registration code.
func (s *Server) handleAdminRegister(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterReq
	if !decodeJSON(w, r, &req) {
		return
	}
	fields := validateRegistration(registerReq{Name: req.Name, Phone: req.Phone, Password: req.Password})
	if strings.TrimSpace(req.AdminCode) == "" {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["admin_code"] = "El código de administrador es obligatorio."
	}
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}
	if req.AdminCode != s.cfg.AdminCode {
		writeMessage(w, http.StatusForbidden, "Código de administrador incorrecto.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "No se pudo procesar la contraseña.")
		return
	}
	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeFieldErrors(w, map[string]string{"phone": "El teléfono ya está registrado."})
			return
		}
		log.Error().Err(err).Msg("create admin user")
		writeMessage(w, http.StatusInternalServerError, "No se pudo registrar el administrador.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Administrador registrado exitosamente.",
		"user":    u,
	})
}

// ------------------------------ JWT plumbing --------------------------------

// issueToken signs an HS256 JWT and records its jti as a live session.
func (s *Server) issueToken(ctx context.Context, u *model.User) (string, error) {
	jti := uuid.NewString()
	exp := time.Now().Add(time.Duration(s.cfg.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   u.ID,
		"role": u.Role,
		"jti":  jti,
		"exp":  exp.Unix(),
		"iat":  time.Now().Unix(),
	})
	signed, err := t.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", err
	}
	if err := s.store.CreateSession(ctx, jti, u.ID, exp.UTC()); err != nil {
		return "", err
	}
	return signed, nil
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// requireAuth enforces a valid, unrevoked JWT and injects authUser into the
// request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.cfg.JWTSecret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			id, _ := claims["id"].(float64)
			jti, _ := claims["jti"].(string)
			if id <= 0 || jti == "" {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}

			// Logout deletes the session row, so a structurally valid token
			// can still be revoked.
			live, err := s.store.SessionValid(r.Context(), jti)
			if err != nil || !live {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			u, err := s.store.UserByID(r.Context(), uint(id))
			if err != nil {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}
			if !u.IsActive {
				writeMessage(w, http.StatusForbidden, "Tu cuenta está desactivada.")
				return
			}

			me := &authUser{ID: u.ID, Name: u.Name, Phone: u.Phone, Role: u.Role, jti: jti}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me)))
		})
	}
}

// requireRole gates a route on the role resolved by requireAuth.
func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me, ok := currentUser(r)
			if !ok || me.Role != role {
				writeMessage(w, http.StatusForbidden, "No tienes el rango necesario para acceder.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// currentUser pulls the authenticated user from the request context.
func currentUser(r *http.Request) (*authUser, bool) {
	u, ok := r.Context().Value(ctxUserKey{}).(*authUser)
	return u, ok && u != nil
}
