// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

const PrincipalKey contextKey = "principal"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*session.Principal, error)
}

// Authenticator resolves the bearer token to a live principal. It applies
// the account gates that the verifier enforces, nothing more: routes add
// RequireApproved or RequireRole on top.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(w, core.InvalidCredentialsError())
				return
			}

			p, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				core.JSONError(w, AuthError(err))
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require evaluates req against the principal placed in the context by
// Authenticator, in the fixed gate order.
func Require(req session.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rej := session.Evaluate(GetPrincipal(r.Context()), req); rej != nil {
				core.JSONError(w, AuthError(rej))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireApproved(next http.Handler) http.Handler {
	return Require(session.Requirement{Approved: true})(next)
}

func RequireRole(roles ...session.Role) func(http.Handler) http.Handler {
	return Require(session.Requirement{Roles: roles})
}

// RequireAdmin admits approved admins and super admins. Admins are not
// exempt from approval.
func RequireAdmin(next http.Handler) http.Handler {
	return Require(session.Requirement{
		Approved: true,
		Roles:    []session.Role{session.RoleAdmin, session.RoleSuperAdmin},
	})(next)
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// AuthError maps a verification or gate failure onto the response sent to
// the client. Token-level reasons collapse into one generic 401; account
// state reasons are reported as distinct 403s. Errors that are not
// rejections pass through unchanged and surface as 500s.
func AuthError(err error) error {
	if core.IsAppError(err) {
		return err
	}

	reason, ok := session.ReasonOf(err)
	if !ok {
		return err
	}

	switch reason {
	case session.ReasonLocked:
		return core.AccountLockedError()
	case session.ReasonInactive:
		return core.AccountInactiveError()
	case session.ReasonNotApproved:
		return core.AccountNotApprovedError()
	case session.ReasonForbidden:
		return core.ForbiddenError("insufficient permissions")
	default:
		return core.InvalidCredentialsError()
	}
}

func GetPrincipal(ctx context.Context) *session.Principal {
	if p, ok := ctx.Value(PrincipalKey).(*session.Principal); ok {
		return p
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if p := GetPrincipal(ctx); p != nil {
		return p.ID
	}
	return ""
}
