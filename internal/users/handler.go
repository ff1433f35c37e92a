package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

// Handler manages end-user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    *rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceUsers, catalog.ActionView))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceUsers, catalog.ActionEdit))
		r.Post("/{id}/activate", h.activateUser)
		r.Post("/{id}/deactivate", h.deactivateUser)
		r.Post("/{id}/restore", h.restoreUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceUsers, catalog.ActionDelete))
		r.Delete("/{id}", h.deleteUser)
	})
}

type userResponse struct {
	User
	Status Status `json:"status"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		Search:         q.Get("search"),
		Status:         Status(q.Get("status")),
		IncludeDeleted: q.Get("include_deleted") == "true",
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	switch filters.Status {
	case "", StatusActive, StatusInactive, StatusSoftDeleted:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown status "+string(filters.Status))
		return
	}

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, user := range list {
		out = append(out, userResponse{User: user, Status: user.Status()})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      out,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user, Status: user.Status()})
}

func (h *Handler) activateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.SetActive(r.Context(), actorID(r), id, active)
	if err != nil {
		h.logger.Warn("set user active", slog.Int64("id", id), slog.Bool("active", active), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user, Status: user.Status()})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.SoftDelete(r.Context(), actorID(r), id)
	if err != nil {
		h.logger.Warn("soft delete user", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user, Status: user.Status()})
}

func (h *Handler) restoreUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Restore(r.Context(), actorID(r), id)
	if err != nil {
		h.logger.Warn("restore user", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{User: user, Status: user.Status()})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be numeric")
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.Admin(), 10, 64)
	return id
}
