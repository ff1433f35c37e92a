package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-admin/meridian/internal/auth"
	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
	_ "github.com/meridian-admin/meridian/testing"
)

type stubRepo struct {
	account *auth.Account
}

func (s *stubRepo) FindByEmail(context.Context, string) (*auth.Account, error) {
	if s.account == nil {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) FindByID(context.Context, int64) (*auth.Account, error) {
	if s.account == nil {
		return nil, shared.ErrNotFound
	}
	return s.account, nil
}

func (s *stubRepo) TouchLastLogin(context.Context, int64, time.Time) error { return nil }

func (s *stubRepo) CreateSession(context.Context, string, int64, time.Time, string, string) error {
	return nil
}

func (s *stubRepo) DeleteSession(context.Context, string) error { return nil }

type stubLoader struct{}

func (stubLoader) LoadActor(_ context.Context, adminID int64) (rbac.Actor, rbac.RoleSnapshot, error) {
	return rbac.Actor{ID: adminID, RoleID: 1, IsActive: true}, rbac.RoleSnapshot{
		ID:       1,
		Name:     "Super Admin",
		IsActive: true,
		Grants: []rbac.Grant{
			{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit, catalog.ActionDelete}},
		},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func activeAccount(t *testing.T, password string) *auth.Account {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &auth.Account{
		ID:           1,
		Email:        "admin@test.local",
		Name:         "Admin",
		PasswordHash: string(hashed),
		RoleID:       1,
		IsActive:     true,
	}
}

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(testLogger(), auth.NewService(repo), stubLoader{}, sessionManager, csrfManager)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessionManager.Load(r.Context(), r)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
			require.NoError(t, sessionManager.Commit(ctx, w, r, sess))
		})
	})
	handler.MountRoutes(router)
	return router, sessionManager
}

func TestLoginSuccess(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{account: activeAccount(t, "correctpass")})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Admin struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"admin"`
		Summaries map[string]string `json:"summaries"`
		CSRFToken string            `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Admin.ID)
	require.NotEmpty(t, body.CSRFToken)
	require.Equal(t, rbac.SummaryFullAccess, body.Summaries[catalog.ResourcePosts])
	require.Equal(t, rbac.SummaryNoAccess, body.Summaries[catalog.ResourceAdmins])

	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Replaying the cookie must yield a session bound to the admin.
	follow := httptest.NewRequest(http.MethodGet, "/me", nil)
	follow.AddCookie(cookies[0])
	sess, err := sessionManager.Load(context.Background(), follow)
	require.NoError(t, err)
	require.Equal(t, "1", sess.Admin())
}

func TestLoginIssuesFreshSessionID(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{account: activeAccount(t, "correctpass")})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "attacker-chosen-id"})
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.NotEqual(t, "attacker-chosen-id", cookies[0].Value)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{account: activeAccount(t, "correctpass")})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@test.local","password":"wrongpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	account := activeAccount(t, "correctpass")
	account.IsActive = false
	router, _ := newAuthRouter(t, &stubRepo{account: account})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"not-an-email","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{account: activeAccount(t, "correctpass")})

	login := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"admin@test.local","password":"correctpass"}`))
	login.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	router.ServeHTTP(loginRes, login)
	require.Equal(t, http.StatusOK, loginRes.Code)
	cookie := loginRes.Result().Cookies()[0]

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	logout.AddCookie(cookie)
	logoutRes := httptest.NewRecorder()
	router.ServeHTTP(logoutRes, logout)
	require.Equal(t, http.StatusNoContent, logoutRes.Code)

	replay := httptest.NewRequest(http.MethodGet, "/me", nil)
	replay.AddCookie(cookie)
	sess, err := sessionManager.Load(context.Background(), replay)
	require.NoError(t, err)
	require.Empty(t, sess.Admin())
}

func TestMeRequiresLogin(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}
