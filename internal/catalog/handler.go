package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/shared"
)

// Handler exposes the read-only catalog for permission-matrix forms.
type Handler struct{}

// NewHandler builds Handler instance.
func NewHandler() *Handler {
	return &Handler{}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog", h.listCatalog)
}

// listCatalog requires an authenticated session but no specific grant:
// every admin needs the catalog to render its own permission summary.
func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Admin() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"resources": Resources()})
}
