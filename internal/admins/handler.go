package admins

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

// Handler manages admin account endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      *rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers admin account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionView))
		r.Get("/", h.listAdmins)
		r.Get("/{id}", h.getAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionCreate))
		r.Post("/", h.createAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionEdit))
		r.Put("/{id}", h.updateAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionDelete))
		r.Delete("/{id}", h.deleteAdmin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionResetPassword))
		r.Post("/{id}/password", h.resetPassword)
	})
}

type createAdminRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	IsActive bool   `json:"is_active"`
}

type updateAdminRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	RoleID   *int64  `json:"role_id,omitempty" validate:"omitempty,gt=0"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list admins", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"admins": list})
}

func (h *Handler) getAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	admin, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req createAdminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	admin, err := h.service.Create(r.Context(), h.actorID(r), CreateAdminInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		RoleID:   req.RoleID,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.logger.Warn("create admin", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, admin)
}

func (h *Handler) updateAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateAdminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	admin, err := h.service.Update(r.Context(), h.actorID(r), id, UpdateAdminPatch{
		Name:     req.Name,
		Email:    req.Email,
		RoleID:   req.RoleID,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.logger.Warn("update admin", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, admin)
}

func (h *Handler) deleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), h.actorID(r), id); err != nil {
		h.logger.Warn("delete admin", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	if err := h.service.ResetPassword(r.Context(), h.actorID(r), id, req.Password); err != nil {
		h.logger.Warn("reset admin password", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "admin id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.Admin(), 10, 64)
	return id
}

func (h *Handler) validate(req any) map[string]string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	} else {
		fields["body"] = err.Error()
	}
	return fields
}
