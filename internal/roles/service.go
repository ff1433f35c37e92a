package roles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-admin/meridian/internal/audit"
	"github.com/meridian-admin/meridian/internal/catalog"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	// Update persists the role when the stored version still matches
	// expectedVersion, bumping the version by one. expectedVersion 0 skips
	// the check (last writer wins).
	Update(ctx context.Context, role Role, expectedVersion int64) (Role, error)
	Delete(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context, roleID int64) (int, error)
}

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name        string
	Description string
	Grants      []rbac.Grant
	IsActive    bool
}

// UpdateRolePatch carries the fields to change; nil means keep.
type UpdateRolePatch struct {
	Name        *string
	Description *string
	Grants      *[]rbac.Grant
	IsActive    *bool
	Version     int64
}

// Service enforces role invariants over the repository.
type Service struct {
	repo     RepositoryPort
	recorder audit.Recorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, recorder audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// List returns all live roles in insertion order.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role by ID.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new role. The created role is never a
// default role; defaults exist only through seeding.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateRoleInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("roles: name required: %w", shared.ErrValidation)
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return Role{}, err
	}
	grants, err := NormalizeGrants(input.Grants)
	if err != nil {
		return Role{}, err
	}

	created, err := s.repo.Create(ctx, Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Grants:      grants,
		IsActive:    input.IsActive,
		IsDefault:   false,
		CreatedBy:   actorID,
	})
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", created.ID, map[string]any{"name": created.Name})
	return created, nil
}

// Update applies a patch to an existing role. Grant and active-flag changes
// are rejected on default roles; renames and description edits are allowed.
func (s *Service) Update(ctx context.Context, actorID int64, roleID int64, patch UpdateRolePatch) (Role, error) {
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return Role{}, err
	}
	if patch.Version != 0 && patch.Version != role.Version {
		return Role{}, shared.ErrStaleVersion
	}

	if role.IsDefault {
		if patch.Grants != nil {
			return Role{}, fmt.Errorf("roles: default role grants are immutable: %w", shared.ErrProtectedRole)
		}
		if patch.IsActive != nil && !*patch.IsActive {
			return Role{}, fmt.Errorf("roles: default role cannot be deactivated: %w", shared.ErrProtectedRole)
		}
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Role{}, fmt.Errorf("roles: name required: %w", shared.ErrValidation)
		}
		if name != role.Name {
			if err := s.ensureNameFree(ctx, name, role.ID); err != nil {
				return Role{}, err
			}
		}
		role.Name = name
	}
	if patch.Description != nil {
		role.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Grants != nil {
		grants, err := NormalizeGrants(*patch.Grants)
		if err != nil {
			return Role{}, err
		}
		role.Grants = grants
	}
	if patch.IsActive != nil {
		role.IsActive = *patch.IsActive
	}

	updated, err := s.repo.Update(ctx, role, patch.Version)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", updated.ID, map[string]any{"name": updated.Name, "version": updated.Version})
	return updated, nil
}

// Delete removes a role. Default roles and roles still assigned to admins
// cannot be removed.
func (s *Service) Delete(ctx context.Context, actorID int64, roleID int64) error {
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsDefault {
		return shared.ErrProtectedRole
	}
	count, err := s.repo.CountAdmins(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("roles: %d admins still assigned: %w", count, shared.ErrRoleInUse)
	}
	if err := s.repo.Delete(ctx, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.delete", roleID, map[string]any{"name": role.Name})
	return nil
}

// Summaries classifies the role's access to every catalog resource for the
// permission-matrix view.
func (s *Service) Summaries(role Role) map[string]string {
	snapshot := role.Snapshot()
	out := make(map[string]string, len(catalog.Resources()))
	for _, res := range catalog.Resources() {
		out[res.ID] = rbac.Summarize(snapshot, res.ID)
	}
	return out
}

// EnsureDefaultRole seeds the protected default role holding every catalog
// resource/action pair. Safe to call on every startup: when the catalog has
// grown since the role was created, its grants are topped up to match, since
// no API path may edit a default role's grants.
func (s *Service) EnsureDefaultRole(ctx context.Context) (Role, error) {
	existing, err := s.repo.GetByName(ctx, DefaultRoleName)
	if err == nil {
		full := FullGrants()
		if grantsEqual(existing.Grants, full) {
			return existing, nil
		}
		existing.Grants = full
		return s.repo.Update(ctx, existing, 0)
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Role{}, err
	}
	return s.repo.Create(ctx, Role{
		Name:        DefaultRoleName,
		Description: "System role holding every permission. Cannot be deleted.",
		Grants:      FullGrants(),
		IsActive:    true,
		IsDefault:   true,
	})
}

// FullGrants returns a grant for every resource/action pair in the catalog.
func FullGrants() []rbac.Grant {
	resources := catalog.Resources()
	grants := make([]rbac.Grant, 0, len(resources))
	for _, res := range resources {
		actions := make([]string, 0, len(res.Actions))
		for _, action := range res.Actions {
			actions = append(actions, action.ID)
		}
		grants = append(grants, rbac.Grant{Resource: res.ID, Actions: actions})
	}
	return grants
}

func grantsEqual(a, b []rbac.Grant) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Resource != b[i].Resource || len(a[i].Actions) != len(b[i].Actions) {
			return false
		}
		for j := range a[i].Actions {
			if a[i].Actions[j] != b[i].Actions[j] {
				return false
			}
		}
	}
	return true
}

// NormalizeGrants validates grants against the catalog and returns a cleaned
// copy: duplicate resources merged, duplicate actions dropped, empty grants
// removed. Unknown resource or action identifiers fail with ErrInvalidGrant.
func NormalizeGrants(grants []rbac.Grant) ([]rbac.Grant, error) {
	merged := make(map[string]map[string]struct{})
	order := make([]string, 0, len(grants))
	for _, grant := range grants {
		if _, err := catalog.Get(grant.Resource); err != nil {
			return nil, fmt.Errorf("roles: unknown resource %q: %w", grant.Resource, shared.ErrInvalidGrant)
		}
		if _, seen := merged[grant.Resource]; !seen {
			merged[grant.Resource] = make(map[string]struct{})
			order = append(order, grant.Resource)
		}
		for _, action := range grant.Actions {
			if !catalog.Has(grant.Resource, action) {
				return nil, fmt.Errorf("roles: action %q not declared for %q: %w", action, grant.Resource, shared.ErrInvalidGrant)
			}
			merged[grant.Resource][action] = struct{}{}
		}
	}

	out := make([]rbac.Grant, 0, len(order))
	for _, resource := range order {
		if len(merged[resource]) == 0 {
			continue
		}
		// Catalog order keeps the persisted shape deterministic.
		actions := make([]string, 0, len(merged[resource]))
		declared, _ := catalog.ActionsFor(resource)
		for _, action := range declared {
			if _, ok := merged[resource][action.ID]; ok {
				actions = append(actions, action.ID)
			}
		}
		out = append(out, rbac.Grant{Resource: resource, Actions: actions})
	}
	return out, nil
}

func (s *Service) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return fmt.Errorf("roles: %q: %w", name, shared.ErrDuplicateName)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, roleID int64, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     meta,
	})
}
