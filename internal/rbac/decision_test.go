package rbac

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-admin/meridian/internal/catalog"
)

func activeActor() Actor {
	return Actor{ID: 1, RoleID: 1, IsActive: true}
}

func TestAuthorizeDeniesUngrantedResource(t *testing.T) {
	role := RoleSnapshot{
		ID:       1,
		IsActive: true,
		Grants:   []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}}},
	}
	for _, res := range []string{catalog.ResourceUsers, catalog.ResourceEvents, "nonexistent"} {
		for _, action := range []string{catalog.ActionView, catalog.ActionDelete, "anything"} {
			require.False(t, Authorize(activeActor(), role, res, action), "%s.%s", res, action)
		}
	}
}

func TestAuthorizeExactActionMembership(t *testing.T) {
	role := RoleSnapshot{
		ID:       1,
		IsActive: true,
		Grants:   []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView, catalog.ActionEdit}}},
	}

	require.True(t, Authorize(activeActor(), role, catalog.ResourcePosts, catalog.ActionView))
	require.True(t, Authorize(activeActor(), role, catalog.ResourcePosts, catalog.ActionEdit))

	// Nothing implicit: other declared actions, undeclared actions, garbage.
	require.False(t, Authorize(activeActor(), role, catalog.ResourcePosts, catalog.ActionCreate))
	require.False(t, Authorize(activeActor(), role, catalog.ResourcePosts, catalog.ActionDelete))
	require.False(t, Authorize(activeActor(), role, catalog.ResourcePosts, "publish"))
	require.False(t, Authorize(activeActor(), role, catalog.ResourcePosts, ""))
}

func TestAuthorizeInactiveAdminDeniesEverything(t *testing.T) {
	full := RoleSnapshot{ID: 1, IsActive: true}
	for _, res := range catalog.Resources() {
		actions := make([]string, 0, len(res.Actions))
		for _, action := range res.Actions {
			actions = append(actions, action.ID)
		}
		full.Grants = append(full.Grants, Grant{Resource: res.ID, Actions: actions})
	}

	inactive := Actor{ID: 1, RoleID: 1, IsActive: false}
	require.False(t, Authorize(inactive, full, catalog.ResourceUsers, catalog.ActionDelete))
	for _, res := range catalog.Resources() {
		for _, action := range res.Actions {
			require.False(t, Authorize(inactive, full, res.ID, action.ID))
		}
	}
}

func TestAuthorizeInactiveRoleDeniesEverything(t *testing.T) {
	role := RoleSnapshot{
		ID:       1,
		IsActive: false,
		Grants:   []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}}},
	}
	require.False(t, Authorize(activeActor(), role, catalog.ResourcePosts, catalog.ActionView))
}

func TestSummarizeClassifications(t *testing.T) {
	postsTotal := catalog.TotalActions(catalog.ResourcePosts)
	require.Equal(t, 4, postsTotal)

	cases := []struct {
		name    string
		grants  []Grant
		want    string
	}{
		{"no grant", nil, SummaryNoAccess},
		{"empty grant", []Grant{{Resource: catalog.ResourcePosts}}, SummaryNoAccess},
		{"view only", []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView}}}, SummaryViewOnly},
		{"partial", []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView, catalog.ActionEdit}}}, fmt.Sprintf("Partial: 2 of %d", postsTotal)},
		{"full", []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionView, catalog.ActionCreate, catalog.ActionEdit, catalog.ActionDelete}}}, SummaryFullAccess},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role := RoleSnapshot{ID: 1, IsActive: true, Grants: tc.grants}
			require.Equal(t, tc.want, Summarize(role, catalog.ResourcePosts))
		})
	}
}

func TestSummarizeSingleNonViewActionIsPartial(t *testing.T) {
	role := RoleSnapshot{
		ID:       1,
		IsActive: true,
		Grants:   []Grant{{Resource: catalog.ResourcePosts, Actions: []string{catalog.ActionDelete}}},
	}
	require.Equal(t, "Partial: 1 of 4", Summarize(role, catalog.ResourcePosts))
}
