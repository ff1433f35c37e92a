package roles

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

// Handler manages role management endpoints.
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

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceRoles, catalog.ActionView))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceRoles, catalog.ActionCreate))
		r.Post("/", h.createRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceRoles, catalog.ActionEdit))
		r.Put("/{id}", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceRoles, catalog.ActionDelete))
		r.Delete("/{id}", h.deleteRole)
	})
}

// An empty action set is accepted; normalization drops the grant as
// equivalent to no grant at all.
type grantPayload struct {
	Resource string   `json:"resource" validate:"required"`
	Actions  []string `json:"actions"`
}

type createRoleRequest struct {
	Name        string         `json:"name" validate:"required,max=120"`
	Description string         `json:"description" validate:"max=500"`
	Grants      []grantPayload `json:"grants" validate:"dive"`
	IsActive    bool           `json:"is_active"`
}

type updateRoleRequest struct {
	Name        *string         `json:"name,omitempty" validate:"omitempty,max=120"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	Grants      *[]grantPayload `json:"grants,omitempty" validate:"omitempty,dive"`
	IsActive    *bool           `json:"is_active,omitempty"`
	Version     int64           `json:"version"`
}

type roleResponse struct {
	Role
	Summaries map[string]string `json:"summaries"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, roleResponse{Role: role, Summaries: h.service.Summaries(role)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role, Summaries: h.service.Summaries(role)})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	role, err := h.service.Create(r.Context(), actorID(r), CreateRoleInput{
		Name:        req.Name,
		Description: req.Description,
		Grants:      toGrants(req.Grants),
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.logger.Warn("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, roleResponse{Role: role, Summaries: h.service.Summaries(role)})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	patch := UpdateRolePatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Version:     req.Version,
	}
	if req.Grants != nil {
		grants := toGrants(*req.Grants)
		patch.Grants = &grants
	}
	role, err := h.service.Update(r.Context(), actorID(r), id, patch)
	if err != nil {
		h.logger.Warn("update role", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role, Summaries: h.service.Summaries(role)})
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actorID(r), id); err != nil {
		h.logger.Warn("delete role", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "role id must be numeric")
		return 0, false
	}
	return id, true
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

func toGrants(payload []grantPayload) []rbac.Grant {
	grants := make([]rbac.Grant, 0, len(payload))
	for _, g := range payload {
		grants = append(grants, rbac.Grant{Resource: g.Resource, Actions: g.Actions})
	}
	return grants
}

func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.Admin(), 10, 64)
	return id
}
