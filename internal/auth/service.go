// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/finance-auth/internal/audit"
	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
)

// Ledger owns token_version. Every mutation is a single SQL statement so
// concurrent revocations are never lost and a password change is never
// visible without its version bump.
type Ledger interface {
	PrincipalLoader
	IncrementTokenVersion(ctx context.Context, id string) (int, error)
	UpdatePasswordHashAndIncrementVersion(
		ctx context.Context,
		id, passwordHash string,
	) (int, error)
}

type Credentials struct {
	Principal    *session.Principal
	PasswordHash string
}

type UserProvider interface {
	Ledger
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	GetCredentialsByID(ctx context.Context, id string) (*Credentials, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*session.Principal, error)
	// UpdatePasswordHash replaces the hash without touching token_version.
	// Only used to upgrade hash parameters for the same password.
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

type ActivityRecorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type RequestMeta struct {
	IPAddress string
	UserAgent string
}

type Service struct {
	users         UserProvider
	tokens        *TokenManager
	verifier      *Verifier
	hasher        *core.PasswordHasher
	activity      ActivityRecorder
	rotateRefresh bool
	logger        *slog.Logger
}

type ServiceConfig struct {
	Users               UserProvider
	Tokens              *TokenManager
	Verifier            *Verifier
	Hasher              *core.PasswordHasher
	Activity            ActivityRecorder
	RotateRefreshTokens bool
	Logger              *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:         cfg.Users,
		tokens:        cfg.Tokens,
		verifier:      cfg.Verifier,
		hasher:        cfg.Hasher,
		activity:      cfg.Activity,
		rotateRefresh: cfg.RotateRefreshTokens,
		logger:        logger,
	}
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	meta RequestMeta,
) (*UserResponse, error) {
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p, err := s.users.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.record(ctx, p, audit.ActionRegister, meta, false, "")

	resp := ToUserResponse(p)
	return &resp, nil
}

// Login checks credentials first so that account state is only revealed to
// someone holding the password. Gate order matches the verifier.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	meta RequestMeta,
) (*AuthResponse, error) {
	ctx, span := core.StartSpan(ctx, "auth.login")
	defer span.End()

	creds, err := s.users.GetCredentialsByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = s.hasher.VerifyTimingSafe(req.Password, "")
			s.activity.Record(ctx, audit.Entry{
				UserEmail: req.Email,
				Action:    audit.ActionLoginFailed,
				Failed:    true,
				IPAddress: meta.IPAddress,
				UserAgent: meta.UserAgent,
				Details:   "unknown email",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := s.hasher.VerifyTimingSafe(req.Password, creds.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	p := creds.Principal

	if !valid {
		s.record(ctx, p, audit.ActionLoginFailed, meta, true, "wrong password")
		return nil, ErrInvalidCredentials
	}

	if rej := session.CheckAccountState(p); rej != nil {
		s.record(ctx, p, audit.ActionLoginFailed, meta, true, string(rej.Reason))
		return nil, rej
	}

	if newHash != "" {
		if err := s.users.UpdatePasswordHash(ctx, p.ID, newHash); err != nil {
			s.logger.WarnContext(ctx, "password rehash failed",
				"user_id", p.ID,
				"error", err,
			)
		}
	}

	resp, err := s.issuePair(p, "")
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", p.ID))
	s.record(ctx, p, audit.ActionLogin, meta, false, "")

	return resp, nil
}

// Refresh re-validates the refresh token against the live ledger and mints
// a new access token. With rotation enabled a new refresh token is issued as
// well; the presented one stays valid until the next version bump.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (*AuthResponse, error) {
	p, err := s.verifier.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	keep := ""
	if !s.rotateRefresh {
		keep = refreshToken
	}

	return s.issuePair(p, keep)
}

// Logout bumps the version. There is no per-token state, so this ends every
// session the account holds.
func (s *Service) Logout(
	ctx context.Context,
	p *session.Principal,
	meta RequestMeta,
) error {
	if _, err := s.users.IncrementTokenVersion(ctx, p.ID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.record(ctx, p, audit.ActionLogout, meta, false, "")
	return nil
}

func (s *Service) LogoutAll(
	ctx context.Context,
	p *session.Principal,
	meta RequestMeta,
) error {
	if _, err := s.users.IncrementTokenVersion(ctx, p.ID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	s.record(ctx, p, audit.ActionLogoutAll, meta, false, "")
	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	p *session.Principal,
	currentPassword, newPassword string,
	meta RequestMeta,
) error {
	creds, err := s.users.GetCredentialsByID(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, err := s.hasher.Verify(currentPassword, creds.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.UpdatePasswordHashAndIncrementVersion(ctx, p.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.record(ctx, p, audit.ActionPasswordChanged, meta, false, "")
	return nil
}

// ForceLogout revokes every token held by targetID and returns the new
// version.
func (s *Service) ForceLogout(
	ctx context.Context,
	actor *session.Principal,
	targetID string,
	meta RequestMeta,
) (int, error) {
	target, err := s.manageable(ctx, actor, targetID)
	if err != nil {
		return 0, err
	}

	version, err := s.users.IncrementTokenVersion(ctx, target.ID)
	if err != nil {
		return 0, fmt.Errorf("force logout: %w", err)
	}

	s.record(ctx, actor, audit.ActionForceLogout, meta, false, "target="+target.Email)
	return version, nil
}

func (s *Service) ResetPassword(
	ctx context.Context,
	actor *session.Principal,
	targetID, newPassword string,
	meta RequestMeta,
) error {
	target, err := s.manageable(ctx, actor, targetID)
	if err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.UpdatePasswordHashAndIncrementVersion(ctx, target.ID, newHash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.record(ctx, actor, audit.ActionUserPasswordReset, meta, false, "target="+target.Email)
	return nil
}

func (s *Service) manageable(
	ctx context.Context,
	actor *session.Principal,
	targetID string,
) (*session.Principal, error) {
	creds, err := s.users.GetCredentialsByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	target := creds.Principal
	if actor.ID != target.ID && !actor.Role.CanManage(target.Role) {
		return nil, fmt.Errorf(
			"only a super admin can manage admin accounts: %w",
			core.ErrForbidden,
		)
	}

	return target, nil
}

func (s *Service) issuePair(
	p *session.Principal,
	refreshToken string,
) (*AuthResponse, error) {
	accessToken, err := s.tokens.IssueAccessToken(p)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	if refreshToken == "" {
		refreshToken, err = s.tokens.IssueRefreshToken(p)
		if err != nil {
			return nil, fmt.Errorf("create refresh token: %w", err)
		}
	}

	ttl := s.tokens.AccessTTL()

	return &AuthResponse{
		User: ToUserResponse(p),
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int(ttl.Seconds()),
			ExpiresAt:    s.tokens.Now().Add(ttl),
		},
	}, nil
}

func (s *Service) record(
	ctx context.Context,
	p *session.Principal,
	action audit.Action,
	meta RequestMeta,
	failed bool,
	details string,
) {
	s.activity.Record(ctx, audit.Entry{
		UserID:    p.ID,
		UserEmail: p.Email,
		Action:    action,
		Failed:    failed,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details:   details,
	})
}
