package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

type memoryRoleRepo struct {
	roles      map[int64]Role
	adminRefs  map[int64]int
	nextRoleID int64
}

func newMemoryRoleRepo() *memoryRoleRepo {
	return &memoryRoleRepo{
		roles:     make(map[int64]Role),
		adminRefs: make(map[int64]int),
	}
}

func (r *memoryRoleRepo) List(ctx context.Context) ([]Role, error) {
	var out []Role
	for id := int64(1); id <= r.nextRoleID; id++ {
		if role, ok := r.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *memoryRoleRepo) Get(ctx context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryRoleRepo) GetByName(ctx context.Context, name string) (Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (r *memoryRoleRepo) Create(ctx context.Context, role Role) (Role, error) {
	r.nextRoleID++
	role.ID = r.nextRoleID
	role.Version = 1
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRoleRepo) Update(ctx context.Context, role Role, expectedVersion int64) (Role, error) {
	stored, ok := r.roles[role.ID]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	if expectedVersion != 0 && stored.Version != expectedVersion {
		return Role{}, shared.ErrStaleVersion
	}
	role.Version = stored.Version + 1
	role.IsDefault = stored.IsDefault
	role.UpdatedAt = time.Now()
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRoleRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memoryRoleRepo) CountAdmins(ctx context.Context, roleID int64) (int, error) {
	return r.adminRefs[roleID], nil
}

func newTestService(t *testing.T) (*Service, *memoryRoleRepo) {
	t.Helper()
	repo := newMemoryRoleRepo()
	return NewService(repo, nil), repo
}

func TestCreateRoleValidatesGrants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateRoleInput{
		Name:   "Moderator",
		Grants: []rbac.Grant{{Resource: "starships", Actions: []string{"view"}}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidGrant)

	_, err = svc.Create(ctx, 1, CreateRoleInput{
		Name:   "Moderator",
		Grants: []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"publish"}}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidGrant)

	role, err := svc.Create(ctx, 1, CreateRoleInput{
		Name:     "Moderator",
		Grants:   []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view", "edit"}}},
		IsActive: true,
	})
	require.NoError(t, err)
	require.False(t, role.IsDefault)
	require.Equal(t, []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view", "edit"}}}, role.Grants)
}

func TestCreateRoleRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, CreateRoleInput{Name: "Editor", IsActive: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, CreateRoleInput{Name: "Editor", IsActive: true})
	require.ErrorIs(t, err, shared.ErrDuplicateName)

	// Exact match is case sensitive.
	_, err = svc.Create(ctx, 1, CreateRoleInput{Name: "editor", IsActive: true})
	require.NoError(t, err)
}

func TestNormalizeGrantsDropsEmptyAndMergesDuplicates(t *testing.T) {
	grants, err := NormalizeGrants([]rbac.Grant{
		{Resource: catalog.ResourcePosts, Actions: []string{"edit"}},
		{Resource: catalog.ResourcePosts, Actions: []string{"view", "view"}},
		{Resource: catalog.ResourceEvents, Actions: nil},
	})
	require.NoError(t, err)
	require.Equal(t, []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view", "edit"}}}, grants)
}

func TestDeleteDefaultRoleProtected(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	def, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	require.True(t, def.IsDefault)

	// Protected even when no admin references it.
	require.Equal(t, 0, repo.adminRefs[def.ID])
	err = svc.Delete(ctx, 1, def.ID)
	require.ErrorIs(t, err, shared.ErrProtectedRole)
}

func TestDeleteRoleInUse(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, 1, CreateRoleInput{Name: "Support", IsActive: true})
	require.NoError(t, err)

	repo.adminRefs[role.ID] = 2
	err = svc.Delete(ctx, 1, role.ID)
	require.ErrorIs(t, err, shared.ErrRoleInUse)

	// After the admins move to another role the delete goes through.
	repo.adminRefs[role.ID] = 0
	require.NoError(t, svc.Delete(ctx, 1, role.ID))

	_, err = svc.Get(ctx, role.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRoleIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, 1, CreateRoleInput{
		Name:     "Moderator",
		Grants:   []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view"}}},
		IsActive: true,
	})
	require.NoError(t, err)

	grants := []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view", "edit"}}}
	patch := UpdateRolePatch{Grants: &grants}

	first, err := svc.Update(ctx, 1, role.ID, patch)
	require.NoError(t, err)
	second, err := svc.Update(ctx, 1, role.ID, patch)
	require.NoError(t, err)

	require.Equal(t, first.Grants, second.Grants)
	require.Len(t, second.Grants, 1)
}

func TestUpdateRoleStaleVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, 1, CreateRoleInput{Name: "Moderator", IsActive: true})
	require.NoError(t, err)

	desc := "first writer"
	_, err = svc.Update(ctx, 1, role.ID, UpdateRolePatch{Description: &desc, Version: role.Version})
	require.NoError(t, err)

	desc2 := "second writer with stale version"
	_, err = svc.Update(ctx, 1, role.ID, UpdateRolePatch{Description: &desc2, Version: role.Version})
	require.ErrorIs(t, err, shared.ErrStaleVersion)
}

func TestUpdateDefaultRoleGrantsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	def, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)

	grants := []rbac.Grant{{Resource: catalog.ResourcePosts, Actions: []string{"view"}}}
	_, err = svc.Update(ctx, 1, def.ID, UpdateRolePatch{Grants: &grants})
	require.ErrorIs(t, err, shared.ErrProtectedRole)

	inactive := false
	_, err = svc.Update(ctx, 1, def.ID, UpdateRolePatch{IsActive: &inactive})
	require.ErrorIs(t, err, shared.ErrProtectedRole)

	// Description edits stay allowed on the default role.
	desc := "renamed description"
	updated, err := svc.Update(ctx, 1, def.ID, UpdateRolePatch{Description: &desc})
	require.NoError(t, err)
	require.Equal(t, desc, updated.Description)
}

func TestEnsureDefaultRoleIsIdempotentAndComplete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	second, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	snapshot := first.Snapshot()
	for _, res := range catalog.Resources() {
		require.Equal(t, rbac.SummaryFullAccess, rbac.Summarize(snapshot, res.ID), res.ID)
	}
}

func TestEnsureDefaultRoleTopsUpStaleGrants(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// A default role persisted before the catalog grew its current shape.
	stale, err := repo.Create(ctx, Role{
		Name: DefaultRoleName,
		Grants: []rbac.Grant{
			{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}},
		},
		IsActive:  true,
		IsDefault: true,
	})
	require.NoError(t, err)

	ensured, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, stale.ID, ensured.ID)
	require.Equal(t, FullGrants(), ensured.Grants)

	snapshot := ensured.Snapshot()
	for _, res := range catalog.Resources() {
		require.Equal(t, rbac.SummaryFullAccess, rbac.Summarize(snapshot, res.ID), res.ID)
	}

	// A role already matching the catalog is returned untouched.
	again, err := svc.EnsureDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, ensured.Version, again.Version)
}
