package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/meridian-admin/meridian/internal/platform/httpx"
	"github.com/meridian-admin/meridian/internal/shared"
)

// ActorLoader resolves the acting admin and its role snapshot.
type ActorLoader interface {
	LoadActor(ctx context.Context, adminID int64) (Actor, RoleSnapshot, error)
}

// DenialCounter records denied authorization decisions for observability.
type DenialCounter interface {
	IncAuthzDenial(resource, action string)
}

type actorRole struct {
	actor Actor
	role  RoleSnapshot
}

// Middleware guards HTTP routes with authorization decisions.
type Middleware struct {
	Loader  ActorLoader
	Logger  *slog.Logger
	Denials DenialCounter

	group singleflight.Group
}

// Require ensures the session admin holds the grant for resource/action.
func (m *Middleware) Require(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			adminID, ok := m.currentAdminID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			loaded, err := m.loadActor(r.Context(), adminID)
			if err != nil {
				// A session pointing at a deleted admin is a deny, not a fault.
				if errors.Is(err, shared.ErrNotFound) {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "account no longer exists")
					return
				}
				if m.Logger != nil {
					m.Logger.Error("rbac load actor", slog.Int64("admin_id", adminID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !Authorize(loaded.actor, loaded.role, resource, action) {
				if m.Denials != nil {
					m.Denials.IncAuthzDenial(resource, action)
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+resource+"."+action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// loadActor collapses concurrent lookups of the same admin into one query.
// The lookup runs on a detached context: collapsed callers must not fail
// because the first request was cancelled mid-query.
func (m *Middleware) loadActor(ctx context.Context, adminID int64) (actorRole, error) {
	key := strconv.FormatInt(adminID, 10)
	detached := context.WithoutCancel(ctx)
	v, err, _ := m.group.Do(key, func() (any, error) {
		actor, role, err := m.Loader.LoadActor(detached, adminID)
		if err != nil {
			return nil, err
		}
		return actorRole{actor: actor, role: role}, nil
	})
	if err != nil {
		return actorRole{}, err
	}
	return v.(actorRole), nil
}

func (m *Middleware) currentAdminID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.Admin())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse admin id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
