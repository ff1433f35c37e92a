package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	loader         rbac.ActorLoader
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, loader rbac.ActorLoader, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		loader:         loader,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountPayload struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	RoleID    int64      `json:"role_id"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type sessionResponse struct {
	Admin     accountPayload    `json:"admin"`
	Role      rbac.RoleSnapshot `json:"role"`
	Summaries map[string]string `json:"summaries"`
	CSRFToken string            `json:"csrf_token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fields[fieldErr.Field()] = fieldErr.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// Fresh ID on every login so a pre-set cookie cannot fix the session.
	h.sessionManager.Rotate(r.Context(), sess)
	sess.SetAdmin(strconv.FormatInt(account.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.respondSession(w, r, sess, account)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the signed-in admin plus its effective permissions so the
// dashboard can decide which controls to render.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Admin() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	adminID, err := strconv.ParseInt(sess.Admin(), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	account, err := h.service.repo.FindByID(r.Context(), adminID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondSession(w, r, sess, account)
}

func (h *Handler) respondSession(w http.ResponseWriter, r *http.Request, sess *shared.Session, account *Account) {
	csrfToken, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("ensure csrf token", slog.Any("error", err))
	}

	_, role, err := h.loader.LoadActor(r.Context(), account.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Warn("load actor for session", slog.Any("error", err))
	}
	summaries := make(map[string]string)
	for _, resource := range catalog.Resources() {
		summaries[resource.ID] = rbac.Summarize(role, resource.ID)
	}

	httpx.JSON(w, http.StatusOK, sessionResponse{
		Admin: accountPayload{
			ID:        account.ID,
			Email:     account.Email,
			Name:      account.Name,
			RoleID:    account.RoleID,
			LastLogin: account.LastLogin,
		},
		Role:      role,
		Summaries: summaries,
		CSRFToken: csrfToken,
	})
}
