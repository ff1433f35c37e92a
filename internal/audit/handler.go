package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

// Handler serves the activity timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    *rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(catalog.ResourceAdmins, catalog.ActionView))
		r.Get("/", h.listTimeline)
	})
}

func (h *Handler) listTimeline(w http.ResponseWriter, r *http.Request) {
	filters := TimelineFilters{
		Entity: r.URL.Query().Get("entity"),
	}
	filters.ActorID, _ = strconv.ParseInt(r.URL.Query().Get("actor_id"), 10, 64)
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.From = t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.To = t
		}
	}

	entries, total, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("list audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}
