package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

type fixedLoader struct {
	actor rbac.Actor
	role  rbac.RoleSnapshot
	err   error
}

func (l fixedLoader) LoadActor(context.Context, int64) (rbac.Actor, rbac.RoleSnapshot, error) {
	return l.actor, l.role, l.err
}

type countingDenials struct {
	calls int
}

func (c *countingDenials) IncAuthzDenial(string, string) { c.calls++ }

func serveGuarded(t *testing.T, mw *rbac.Middleware, resource, action string, adminID string) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Require(resource, action)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if adminID != "" {
		sess := &shared.Session{}
		sess.SetAdmin(adminID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestRequireWithoutSessionIsUnauthorized(t *testing.T) {
	mw := &rbac.Middleware{Loader: fixedLoader{}}
	res := serveGuarded(t, mw, catalog.ResourcePosts, catalog.ActionView, "")
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequireGrantedPasses(t *testing.T) {
	mw := &rbac.Middleware{Loader: fixedLoader{
		actor: rbac.Actor{ID: 1, RoleID: 1, IsActive: true},
		role: rbac.RoleSnapshot{ID: 1, IsActive: true, Grants: []rbac.Grant{
			{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}},
		}},
	}}
	res := serveGuarded(t, mw, catalog.ResourcePosts, catalog.ActionView, "1")
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRequireDeniedCountsAndForbids(t *testing.T) {
	denials := &countingDenials{}
	mw := &rbac.Middleware{
		Loader: fixedLoader{
			actor: rbac.Actor{ID: 1, RoleID: 1, IsActive: true},
			role: rbac.RoleSnapshot{ID: 1, IsActive: true, Grants: []rbac.Grant{
				{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}},
			}},
		},
		Denials: denials,
	}
	res := serveGuarded(t, mw, catalog.ResourcePosts, catalog.ActionDelete, "1")
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, 1, denials.calls)
}

func TestRequireVanishedAdminIsForbidden(t *testing.T) {
	mw := &rbac.Middleware{Loader: fixedLoader{err: shared.ErrNotFound}}
	res := serveGuarded(t, mw, catalog.ResourceRoles, catalog.ActionView, "5")
	require.Equal(t, http.StatusForbidden, res.Code)
}

type cancelAwareLoader struct {
	actor rbac.Actor
	role  rbac.RoleSnapshot
}

func (l cancelAwareLoader) LoadActor(ctx context.Context, _ int64) (rbac.Actor, rbac.RoleSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return rbac.Actor{}, rbac.RoleSnapshot{}, err
	}
	return l.actor, l.role, nil
}

func TestRequireSurvivesCancelledRequestContext(t *testing.T) {
	mw := &rbac.Middleware{Loader: cancelAwareLoader{
		actor: rbac.Actor{ID: 1, RoleID: 1, IsActive: true},
		role: rbac.RoleSnapshot{ID: 1, IsActive: true, Grants: []rbac.Grant{
			{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}},
		}},
	}}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Require(catalog.ResourcePosts, catalog.ActionView)(next)

	sess := &shared.Session{}
	sess.SetAdmin("1")
	ctx, cancel := context.WithCancel(shared.ContextWithSession(context.Background(), sess))
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	// The collapsed lookup runs detached from the caller's cancellation.
	require.Equal(t, http.StatusOK, res.Code)
}
