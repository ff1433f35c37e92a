package admins

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-admin/meridian/internal/audit"
	"github.com/meridian-admin/meridian/internal/rbac"
	"github.com/meridian-admin/meridian/internal/roles"
	"github.com/meridian-admin/meridian/internal/shared"
)

// RepositoryPort defines data access methods for admin accounts.
type RepositoryPort interface {
	List(ctx context.Context) ([]Admin, error)
	Get(ctx context.Context, id int64) (Admin, error)
	Create(ctx context.Context, admin Admin) (Admin, error)
	Update(ctx context.Context, admin Admin) (Admin, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	Delete(ctx context.Context, id int64) error
}

// RoleSource resolves roles for validation and authorization snapshots.
type RoleSource interface {
	Get(ctx context.Context, id int64) (roles.Role, error)
}

// SessionInvalidator destroys every stored session of one admin.
type SessionInvalidator interface {
	DestroyAllForAdmin(ctx context.Context, adminID string) error
}

// CreateAdminInput captures the payload for creating an admin account.
type CreateAdminInput struct {
	Name     string
	Email    string
	Password string
	RoleID   int64
	IsActive bool
}

// UpdateAdminPatch carries the fields to change; nil means keep.
type UpdateAdminPatch struct {
	Name     *string
	Email    *string
	RoleID   *int64
	IsActive *bool
}

// Service enforces admin account invariants.
type Service struct {
	repo     RepositoryPort
	roles    RoleSource
	sessions SessionInvalidator
	recorder audit.Recorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roleSource RoleSource, sessions SessionInvalidator, recorder audit.Recorder) *Service {
	return &Service{repo: repo, roles: roleSource, sessions: sessions, recorder: recorder}
}

// List returns all live admin accounts.
func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.repo.List(ctx)
}

// Get fetches an admin by ID.
func (s *Service) Get(ctx context.Context, id int64) (Admin, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions a new admin account.
func (s *Service) Create(ctx context.Context, actorID int64, input CreateAdminInput) (Admin, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return Admin{}, fmt.Errorf("admins: name and email required: %w", shared.ErrValidation)
	}
	if len(input.Password) < MinCredentialLength {
		return Admin{}, fmt.Errorf("admins: password below %d characters: %w", MinCredentialLength, shared.ErrWeakCredential)
	}
	if _, err := s.roles.Get(ctx, input.RoleID); err != nil {
		return Admin{}, fmt.Errorf("admins: role %d: %w", input.RoleID, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, err
	}
	created, err := s.repo.Create(ctx, Admin{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       input.RoleID,
		IsActive:     input.IsActive,
	})
	if err != nil {
		return Admin{}, err
	}
	s.record(ctx, actorID, "admin.create", created.ID, map[string]any{"email": created.Email})
	return created, nil
}

// Update applies a patch to an existing admin account.
func (s *Service) Update(ctx context.Context, actorID int64, adminID int64, patch UpdateAdminPatch) (Admin, error) {
	admin, err := s.repo.Get(ctx, adminID)
	if err != nil {
		return Admin{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return Admin{}, fmt.Errorf("admins: name required: %w", shared.ErrValidation)
		}
		admin.Name = name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return Admin{}, fmt.Errorf("admins: email required: %w", shared.ErrValidation)
		}
		admin.Email = email
	}
	if patch.RoleID != nil {
		if _, err := s.roles.Get(ctx, *patch.RoleID); err != nil {
			return Admin{}, fmt.Errorf("admins: role %d: %w", *patch.RoleID, err)
		}
		admin.RoleID = *patch.RoleID
	}
	if patch.IsActive != nil {
		admin.IsActive = *patch.IsActive
	}

	updated, err := s.repo.Update(ctx, admin)
	if err != nil {
		return Admin{}, err
	}
	if patch.IsActive != nil && !*patch.IsActive {
		// Deactivation takes effect immediately, not at next session expiry.
		s.invalidateSessions(ctx, adminID)
	}
	s.record(ctx, actorID, "admin.update", updated.ID, map[string]any{"email": updated.Email})
	return updated, nil
}

// CanDelete reports whether actingID may delete targetID. Self-deletion is
// always forbidden; everything else is left to the authorize check.
func CanDelete(actingID, targetID int64) bool {
	return actingID != targetID
}

// Delete removes an admin account. The acting admin can never remove itself.
func (s *Service) Delete(ctx context.Context, actorID int64, targetID int64) error {
	if !CanDelete(actorID, targetID) {
		return shared.ErrSelfDelete
	}
	admin, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}
	s.invalidateSessions(ctx, targetID)
	s.record(ctx, actorID, "admin.delete", targetID, map[string]any{"email": admin.Email})
	return nil
}

// ResetPassword replaces the stored credential hash and logs the target out
// of every session.
func (s *Service) ResetPassword(ctx context.Context, actorID int64, targetID int64, newPassword string) error {
	if len(newPassword) < MinCredentialLength {
		return fmt.Errorf("admins: password below %d characters: %w", MinCredentialLength, shared.ErrWeakCredential)
	}
	if _, err := s.repo.Get(ctx, targetID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, targetID, string(hash)); err != nil {
		return err
	}
	s.invalidateSessions(ctx, targetID)
	s.record(ctx, actorID, "admin.reset_password", targetID, nil)
	return nil
}

// LoadActor resolves the acting admin and its role snapshot for the
// authorization middleware.
func (s *Service) LoadActor(ctx context.Context, adminID int64) (rbac.Actor, rbac.RoleSnapshot, error) {
	admin, err := s.repo.Get(ctx, adminID)
	if err != nil {
		return rbac.Actor{}, rbac.RoleSnapshot{}, err
	}
	role, err := s.roles.Get(ctx, admin.RoleID)
	if err != nil {
		// A dangling role reference denies rather than faults.
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Actor{ID: admin.ID, RoleID: admin.RoleID, IsActive: admin.IsActive}, rbac.RoleSnapshot{}, nil
		}
		return rbac.Actor{}, rbac.RoleSnapshot{}, err
	}
	actor := rbac.Actor{ID: admin.ID, RoleID: admin.RoleID, IsActive: admin.IsActive}
	return actor, role.Snapshot(), nil
}

var _ rbac.ActorLoader = (*Service)(nil)

func (s *Service) invalidateSessions(ctx context.Context, adminID int64) {
	if s.sessions == nil {
		return
	}
	_ = s.sessions.DestroyAllForAdmin(ctx, strconv.FormatInt(adminID, 10))
}

func (s *Service) record(ctx context.Context, actorID int64, action string, adminID int64, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "admin",
		EntityID: strconv.FormatInt(adminID, 10),
		Meta:     meta,
	})
}
