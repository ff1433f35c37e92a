package users

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meridian-admin/meridian/internal/audit"
	"github.com/meridian-admin/meridian/internal/shared"
)

// ListFilters narrows the user listing.
type ListFilters struct {
	Search         string
	Status         Status
	IncludeDeleted bool
	Page           int
	PerPage        int
}

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
	SoftDelete(ctx context.Context, id int64, deletedAt, purgeAt time.Time) (User, error)
	Restore(ctx context.Context, id int64) (User, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service handles the user-management lifecycle.
type Service struct {
	repo     RepositoryPort
	recorder audit.Recorder
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, recorder audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder, now: time.Now}
}

// List returns users matching the filters plus the total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a user by ID, soft-deleted included so the dashboard can show
// accounts pending purge.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// SetActive toggles the active flag. Soft-deleted accounts must be restored
// first.
func (s *Service) SetActive(ctx context.Context, actorID int64, id int64, active bool) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Status() == StatusSoftDeleted {
		return User{}, fmt.Errorf("users: account is deleted: %w", shared.ErrValidation)
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	action := "user.activate"
	if !active {
		action = "user.deactivate"
	}
	s.record(ctx, actorID, action, id, nil)
	return updated, nil
}

// SoftDelete moves the account into the soft-deleted state and schedules the
// hard purge. Deleting an already-deleted account is a no-op returning the
// current state, so a retried request cannot push purge_at further out.
func (s *Service) SoftDelete(ctx context.Context, actorID int64, id int64) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Status() == StatusSoftDeleted {
		return user, nil
	}
	deletedAt := s.now().UTC()
	purgeAt := deletedAt.Add(PurgeRetention)
	deleted, err := s.repo.SoftDelete(ctx, id, deletedAt, purgeAt)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.soft_delete", id, map[string]any{"purge_at": purgeAt})
	return deleted, nil
}

// Restore cancels a pending purge and reactivates the account.
func (s *Service) Restore(ctx context.Context, actorID int64, id int64) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.Status() != StatusSoftDeleted {
		return User{}, fmt.Errorf("users: account is not deleted: %w", shared.ErrValidation)
	}
	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actorID, "user.restore", id, nil)
	return restored, nil
}

// PurgeExpired hard-deletes every account whose purge deadline has passed.
// Called by the background sweeper, never by a request handler.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().UTC())
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.recorder == nil {
		return
	}
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
}
