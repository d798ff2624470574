// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/finance-auth/internal/audit"
	"github.com/carterperez-dev/finance-auth/internal/auth"
	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

var (
	ErrSelfAction = fmt.Errorf(
		"cannot perform this action on your own account: %w", core.ErrForbidden)
	ErrSuperAdminProtected = fmt.Errorf(
		"super admin accounts cannot be deleted: %w", core.ErrForbidden)
	ErrInsufficientAuthority = fmt.Errorf(
		"only a super admin can manage admin accounts: %w", core.ErrForbidden)
	ErrInvalidTransition = fmt.Errorf(
		"invalid status transition: %w", core.ErrConflict)
)

var _ auth.UserProvider = (*Service)(nil)

type Service struct {
	repo     Repository
	activity auth.ActivityRecorder
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	activity auth.ActivityRecorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		activity: activity,
		logger:   logger,
	}
}

func (s *Service) LoadPrincipalByIdentity(
	ctx context.Context,
	identity string,
) (*session.Principal, error) {
	u, err := s.repo.GetByEmail(ctx, identity)
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

func (s *Service) IncrementTokenVersion(
	ctx context.Context,
	id string,
) (int, error) {
	return s.repo.IncrementTokenVersion(ctx, id)
}

func (s *Service) UpdatePasswordHashAndIncrementVersion(
	ctx context.Context,
	id, passwordHash string,
) (int, error) {
	return s.repo.UpdatePasswordHashAndIncrementVersion(ctx, id, passwordHash)
}

func (s *Service) GetCredentialsByEmail(
	ctx context.Context,
	email string,
) (*auth.Credentials, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return credentials(u), nil
}

func (s *Service) GetCredentialsByID(
	ctx context.Context,
	id string,
) (*auth.Credentials, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return credentials(u), nil
}

// Create registers a self-service account. New accounts always start as
// pending users with version 1; the schema defaults supply the version.
func (s *Service) Create(
	ctx context.Context,
	email, passwordHash, name string,
) (*session.Principal, error) {
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         string(session.RoleUser),
		Status:       string(session.StatusPending),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u.Principal(), nil
}

func (s *Service) UpdatePasswordHash(
	ctx context.Context,
	id, passwordHash string,
) error {
	return s.repo.UpdatePasswordHash(ctx, id, passwordHash)
}

// Bootstrap creates the initial super admin if no account holds the email.
// It reports whether an account was created.
func (s *Service) Bootstrap(
	ctx context.Context,
	email, passwordHash, name string,
) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         string(session.RoleSuperAdmin),
		Status:       string(session.StatusApproved),
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}

	s.logger.InfoContext(ctx, "bootstrap super admin created",
		"user_id", u.ID,
		"email", u.Email,
	)
	return true, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := ToUserResponse(u)
	return &resp, nil
}

func (s *Service) UpdateMe(
	ctx context.Context,
	id string,
	req UpdateUserRequest,
) (*UserResponse, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	resp := ToUserResponse(u)
	return &resp, nil
}

// DeleteMe soft-deletes the caller. A deleted account no longer resolves,
// so its tokens fail verification without a version bump.
func (s *Service) DeleteMe(
	ctx context.Context,
	p *session.Principal,
	meta auth.RequestMeta,
) error {
	if p.Role == session.RoleSuperAdmin {
		return fmt.Errorf("delete self: %w", ErrSuperAdminProtected)
	}

	if err := s.repo.SoftDelete(ctx, p.ID); err != nil {
		return err
	}

	s.record(ctx, p, audit.ActionUserDelete, meta, "target="+p.Email)
	return nil
}

func (s *Service) ListUsers(
	ctx context.Context,
	params ListUsersParams,
) ([]UserResponse, int, error) {
	users, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return ToUserResponseList(users), total, nil
}

func (s *Service) Stats(ctx context.Context) (*UserStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var stats UserStats
	for _, c := range counts {
		stats.Total += c.Count
		switch session.Status(c.Status) {
		case session.StatusPending:
			stats.Pending = c.Count
		case session.StatusApproved:
			stats.Approved = c.Count
		case session.StatusRejected:
			stats.Rejected = c.Count
		}
	}

	return &stats, nil
}

func (s *Service) UpdateUser(
	ctx context.Context,
	actor *session.Principal,
	id string,
	req UpdateUserRequest,
	meta auth.RequestMeta,
) (*UserResponse, error) {
	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		u.Name = *req.Name
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}

	s.record(ctx, actor, audit.ActionUserUpdate, meta, "target="+u.Email)

	resp := ToUserResponse(u)
	return &resp, nil
}

// UpdateUserRole changes the role of another account. The actor must be
// able to manage both the current and the requested role, so an admin can
// neither demote nor create admins.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	actor *session.Principal,
	id, role string,
	meta auth.RequestMeta,
) (*UserResponse, error) {
	newRole, err := session.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	if actor.ID == id {
		return nil, ErrSelfAction
	}

	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !actor.Role.CanManage(newRole) {
		return nil, fmt.Errorf("assign %s: %w", newRole, ErrInsufficientAuthority)
	}

	if err := s.repo.UpdateRole(ctx, id, string(newRole)); err != nil {
		return nil, err
	}

	s.record(ctx, actor, audit.ActionUserRoleChange, meta,
		fmt.Sprintf("target=%s from=%s to=%s", u.Email, u.Role, newRole))

	u.Role = string(newRole)
	resp := ToUserResponse(u)
	return &resp, nil
}

func (s *Service) Approve(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	u, err := s.transitionable(ctx, actor, id, session.StatusApproved)
	if err != nil {
		return err
	}

	if err := s.repo.Approve(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor, audit.ActionUserApprove, meta, "target="+u.Email)
	return nil
}

// Reject moves the account to rejected and bumps its version in the same
// statement, so tokens issued while it was approved stop working at once.
func (s *Service) Reject(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) (int, error) {
	if actor.ID == id {
		return 0, ErrSelfAction
	}

	u, err := s.transitionable(ctx, actor, id, session.StatusRejected)
	if err != nil {
		return 0, err
	}

	version, err := s.repo.RejectAndIncrementVersion(ctx, id)
	if err != nil {
		return 0, err
	}

	s.record(ctx, actor, audit.ActionUserReject, meta, "target="+u.Email)
	return version, nil
}

func (s *Service) Lock(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	return s.setLocked(ctx, actor, id, true, meta)
}

func (s *Service) Unlock(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	return s.setLocked(ctx, actor, id, false, meta)
}

// Deactivate keeps the account and its version but fails every gate
// check, so existing tokens are refused with an inactive-account error.
func (s *Service) Deactivate(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	return s.setActive(ctx, actor, id, false, meta)
}

func (s *Service) Activate(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	return s.setActive(ctx, actor, id, true, meta)
}

func (s *Service) Delete(
	ctx context.Context,
	actor *session.Principal,
	id string,
	meta auth.RequestMeta,
) error {
	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}

	if session.Role(u.Role) == session.RoleSuperAdmin {
		return ErrSuperAdminProtected
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.record(ctx, actor, audit.ActionUserDelete, meta, "target="+u.Email)
	return nil
}

// RevokeAllSessions bumps every account's version. Only a super admin may
// do this; the caller's own session ends with everyone else's.
func (s *Service) RevokeAllSessions(
	ctx context.Context,
	actor *session.Principal,
	meta auth.RequestMeta,
) (int64, error) {
	if actor.Role != session.RoleSuperAdmin {
		return 0, ErrInsufficientAuthority
	}

	n, err := s.repo.IncrementAllTokenVersions(ctx)
	if err != nil {
		return 0, err
	}

	s.logger.WarnContext(ctx, "all sessions revoked",
		"actor_id", actor.ID,
		"accounts", n,
	)
	s.record(ctx, actor, audit.ActionRevokeAllSessions, meta,
		fmt.Sprintf("accounts=%d", n))
	return n, nil
}

func (s *Service) setLocked(
	ctx context.Context,
	actor *session.Principal,
	id string,
	locked bool,
	meta auth.RequestMeta,
) error {
	if actor.ID == id {
		return ErrSelfAction
	}

	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetLocked(ctx, id, locked); err != nil {
		return err
	}

	action := audit.ActionUserUnlock
	if locked {
		action = audit.ActionUserLock
	}
	s.record(ctx, actor, action, meta, "target="+u.Email)
	return nil
}

func (s *Service) setActive(
	ctx context.Context,
	actor *session.Principal,
	id string,
	active bool,
	meta auth.RequestMeta,
) error {
	if actor.ID == id {
		return ErrSelfAction
	}

	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	action := audit.ActionUserDeactivate
	if active {
		action = audit.ActionUserActivate
	}
	s.record(ctx, actor, action, meta, "target="+u.Email)
	return nil
}

func (s *Service) manageable(
	ctx context.Context,
	actor *session.Principal,
	id string,
) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if actor.ID != u.ID && !actor.Role.CanManage(session.Role(u.Role)) {
		return nil, ErrInsufficientAuthority
	}

	return u, nil
}

func (s *Service) transitionable(
	ctx context.Context,
	actor *session.Principal,
	id string,
	next session.Status,
) (*User, error) {
	u, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !session.Status(u.Status).CanTransitionTo(next) {
		return nil, fmt.Errorf("%s to %s: %w", u.Status, next, ErrInvalidTransition)
	}

	return u, nil
}

func (s *Service) record(
	ctx context.Context,
	actor *session.Principal,
	action audit.Action,
	meta auth.RequestMeta,
	details string,
) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, audit.Entry{
		UserID:    actor.ID,
		UserEmail: actor.Email,
		Action:    action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details:   details,
	})
}

func credentials(u *User) *auth.Credentials {
	return &auth.Credentials{
		Principal:    u.Principal(),
		PasswordHash: u.PasswordHash,
	}
}
