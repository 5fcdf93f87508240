// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Mamiland Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/mamiland/mamiland/internal/auth"
	"github.com/mamiland/mamiland/internal/observability"
	"github.com/mamiland/mamiland/pkg/errutil"
)

// Handler holds the HTTP surface and its dependencies.
type Handler struct {
	gateway       *auth.Gateway
	users         auth.UserRepository
	codes         *auth.AccessCodeService
	tokens        *auth.TokenService
	metrics       *observability.Metrics
	logger        *slog.Logger
	secureCookies bool
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithMetrics attaches application metrics to the handler.
func WithMetrics(m *observability.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithSecureCookies forces the Secure flag on session cookies. On by
// default; disabled only for plain-HTTP development.
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *Handler) { h.secureCookies = secure }
}

// NewHandler creates the API handler.
func NewHandler(
	gateway *auth.Gateway,
	users auth.UserRepository,
	codes *auth.AccessCodeService,
	tokens *auth.TokenService,
	logger *slog.Logger,
	opts ...HandlerOption,
) (*Handler, error) {
	if gateway == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("gateway is required")
	}
	if users == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("user repository is required")
	}
	if codes == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("access code service is required")
	}
	if tokens == nil {
		return nil, oops.Code("API_CONFIG_INVALID").Errorf("token service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		gateway:       gateway,
		users:         users,
		codes:         codes,
		tokens:        tokens,
		logger:        logger,
		secureCookies: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Routes builds the request router with middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", h.handleUserLogin)
	mux.HandleFunc("POST /api/auth/register", h.handleRegister)

	mux.HandleFunc("POST /api/admin/login", h.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/logout", h.handleAdminLogout)

	mux.HandleFunc("GET /api/profile", h.requireRole(auth.RoleUser, h.handleGetProfile))
	mux.HandleFunc("PATCH /api/profile", h.requireRole(auth.RoleUser, h.handlePatchProfile))

	mux.HandleFunc("GET /api/admin/access-codes", h.requireRole(auth.RoleAdmin, h.handleListAccessCodes))
	mux.HandleFunc("POST /api/admin/access-codes", h.requireRole(auth.RoleAdmin, h.handleGenerateAccessCode))
	mux.HandleFunc("DELETE /api/admin/access-codes/{code}", h.requireRole(auth.RoleAdmin, h.handleDeleteAccessCode))

	return withRequestID(withLogging(h.logger, h.metrics, mux))
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	AccessCode string `json:"access_code"`
}

type userPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type userSessionResponse struct {
	Success bool        `json:"success"`
	User    userPayload `json:"user"`
	Token   string      `json:"token"`
}

type adminPayload struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

type adminSessionResponse struct {
	Success bool         `json:"success"`
	Admin   adminPayload `json:"admin"`
	Token   string       `json:"token"`
}

func userSessionPayload(s *auth.Session) userSessionResponse {
	return userSessionResponse{
		Success: true,
		User: userPayload{
			ID:       s.Identity.ID,
			Username: s.Identity.Username,
			Email:    s.Identity.Email,
		},
		Token: s.Token,
	}
}

func adminSessionPayload(s *auth.Session) adminSessionResponse {
	return adminSessionResponse{
		Success: true,
		Admin: adminPayload{
			Username: s.Identity.Username,
			IsAdmin:  s.Identity.Role == auth.RoleAdmin,
		},
		Token: s.Token,
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return oops.Code("AUTH_VALIDATION_INPUT").Wrapf(err, "invalid request body")
	}
	return nil
}

func (h *Handler) recordLogin(role, outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(role, outcome).Inc()
	}
}

func (h *Handler) recordRegistration(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistrationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) recordRedemption(outcome string) {
	if h.metrics != nil {
		h.metrics.CodeRedemptionsTotal.WithLabelValues(outcome).Inc()
	}
}

func loginOutcome(err error) string {
	if errutil.Code(err) == "AUTH_ACCOUNT_LOCKED" {
		return observability.OutcomeLocked
	}
	return observability.OutcomeFailure
}

func (h *Handler) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	login := req.Login
	if login == "" {
		login = req.Username
	}

	session, err := h.gateway.LoginUser(r.Context(), login, req.Password)
	if err != nil {
		h.recordLogin("user", loginOutcome(err))
		writeError(w, h.logger, err)
		return
	}

	h.recordLogin("user", observability.OutcomeSuccess)
	writeJSON(w, http.StatusOK, userSessionPayload(session))
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.gateway.Register(r.Context(), req.Username, req.Email, req.Password, req.AccessCode)
	if err != nil {
		if strings.HasPrefix(errutil.Code(err), "ACCESS_CODE_") {
			h.recordRedemption(observability.RedemptionRejected)
		}
		h.recordRegistration(observability.OutcomeFailure)
		writeError(w, h.logger, err)
		return
	}

	h.recordRedemption(observability.RedemptionAccepted)
	h.recordRegistration(observability.OutcomeSuccess)
	writeJSON(w, http.StatusCreated, userSessionPayload(session))
}

func (h *Handler) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	username := req.Username
	if username == "" {
		username = req.Login
	}

	session, err := h.gateway.LoginAdmin(r.Context(), username, req.Password)
	if err != nil {
		h.recordLogin("admin", loginOutcome(err))
		writeError(w, h.logger, err)
		return
	}

	h.recordLogin("admin", observability.OutcomeSuccess)
	http.SetCookie(w, newAdminCookie(session.Token, h.secureCookies))
	writeJSON(w, http.StatusOK, adminSessionPayload(session))
}

func (h *Handler) handleAdminLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, clearAdminCookie(h.secureCookies))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type profilePayload struct {
	Name              string     `json:"name"`
	Age               *int       `json:"age"`
	IsPregnant        *bool      `json:"is_pregnant"`
	PregnancyWeek     *int       `json:"pregnancy_week"`
	MedicalConditions *string    `json:"medical_conditions"`
	UserGroup         *string    `json:"user_group"`
	IsComplete        bool       `json:"is_complete"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func newProfilePayload(p *auth.Profile) profilePayload {
	if p == nil {
		return profilePayload{}
	}
	payload := profilePayload{
		Name:              p.Name,
		Age:               p.Age,
		IsPregnant:        p.IsPregnant,
		PregnancyWeek:     p.PregnancyWeek,
		MedicalConditions: p.MedicalConditions,
		UserGroup:         p.UserGroup,
		IsComplete:        p.IsComplete,
	}
	if !p.UpdatedAt.IsZero() {
		payload.UpdatedAt = &p.UpdatedAt
	}
	return payload
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfilePayload(user.Profile))
}

type profilePatchRequest struct {
	Name              *string `json:"name"`
	Age               *int    `json:"age"`
	IsPregnant        *bool   `json:"is_pregnant"`
	PregnancyWeek     *int    `json:"pregnancy_week"`
	MedicalConditions *string `json:"medical_conditions"`
	UserGroup         *string `json:"user_group"`
	IsComplete        *bool   `json:"is_complete"`
}

func (h *Handler) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req profilePatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	patch := auth.ProfilePatch{
		Name:              req.Name,
		Age:               req.Age,
		IsPregnant:        req.IsPregnant,
		PregnancyWeek:     req.PregnancyWeek,
		MedicalConditions: req.MedicalConditions,
		UserGroup:         req.UserGroup,
		IsComplete:        req.IsComplete,
	}
	if patch.IsEmpty() {
		writeError(w, h.logger, oops.Code("PROFILE_VALIDATION").Errorf("no profile fields to update"))
		return
	}

	if err := h.users.UpdateProfile(r.Context(), claims.UserID, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, newProfilePayload(user.Profile))
}

type accessCodePayload struct {
	Code      string     `json:"code"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	IsUsed    bool       `json:"is_used"`
	UsedBy    *int64     `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func newAccessCodePayload(c *auth.AccessCode) accessCodePayload {
	return accessCodePayload{
		Code:      c.Code,
		CreatedAt: c.CreatedAt,
		ExpiresAt: c.ExpiresAt,
		IsUsed:    c.IsUsed,
		UsedBy:    c.UsedBy,
		UsedAt:    c.UsedAt,
	}
}

func (h *Handler) handleListAccessCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codes.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	payload := make([]accessCodePayload, 0, len(codes))
	for i := range codes {
		payload = append(payload, newAccessCodePayload(&codes[i]))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleGenerateAccessCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.codes.Generate(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAccessCodePayload(code))
}

func (h *Handler) handleDeleteAccessCode(w http.ResponseWriter, r *http.Request) {
	if err := h.codes.Delete(r.Context(), r.PathValue("code")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
