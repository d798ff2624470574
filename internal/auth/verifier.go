// AngelaMos | 2026
// verifier.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

// PrincipalLoader resolves a token subject to the live account record.
// Implementations must read from the primary so a committed revocation is
// visible to the very next verification.
type PrincipalLoader interface {
	LoadPrincipalByIdentity(
		ctx context.Context,
		email string,
	) (*session.Principal, error)
}

type Verifier struct {
	tokens *TokenManager
	loader PrincipalLoader
	logger *slog.Logger
}

func NewVerifier(
	tokens *TokenManager,
	loader PrincipalLoader,
	logger *slog.Logger,
) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		tokens: tokens,
		loader: loader,
		logger: logger,
	}
}

func (v *Verifier) VerifyAccessToken(
	ctx context.Context,
	raw string,
) (*session.Principal, error) {
	return v.Verify(ctx, raw, KindAccess)
}

func (v *Verifier) VerifyRefreshToken(
	ctx context.Context,
	raw string,
) (*session.Principal, error) {
	return v.Verify(ctx, raw, KindRefresh)
}

// Verify runs, in order: structure and signature, expiry, kind, subject
// lookup, version freshness, then the locked, inactive and not-approved
// gates. The first failing check wins. Rejections are *session.Rejection;
// any other error is a storage failure.
func (v *Verifier) Verify(
	ctx context.Context,
	raw string,
	kind TokenKind,
) (*session.Principal, error) {
	ctx, span := core.StartSpan(
		ctx,
		"auth.verify",
		attribute.String("token.kind", string(kind)),
	)
	defer span.End()

	tok, rej := v.tokens.decode(raw)
	if rej != nil {
		return nil, v.reject(ctx, rej, kind, "")
	}

	if !v.tokens.Now().Before(tok.ExpiresAt) {
		return nil, v.reject(ctx, session.Reject(session.ReasonExpired), kind, tok.Subject)
	}

	if tok.Kind != kind {
		return nil, v.reject(ctx, session.Reject(session.ReasonWrongTokenType), kind, tok.Subject)
	}

	p, err := v.loader.LoadPrincipalByIdentity(ctx, tok.Subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, v.reject(ctx, session.Reject(session.ReasonUnknownSubject), kind, tok.Subject)
		}
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if tok.Version != p.TokenVersion {
		return nil, v.reject(ctx, session.Reject(session.ReasonStaleToken), kind, tok.Subject)
	}

	if rej := session.CheckAccountState(p); rej != nil {
		return nil, v.reject(ctx, rej, kind, tok.Subject)
	}

	span.SetAttributes(attribute.String("user.id", p.ID))

	return p, nil
}

func (v *Verifier) reject(
	ctx context.Context,
	rej *session.Rejection,
	kind TokenKind,
	subject string,
) error {
	core.AddSpanEvent(
		ctx,
		"token rejected",
		attribute.String("reason", string(rej.Reason)),
	)

	v.logger.DebugContext(ctx, "token rejected",
		"reason", rej.Reason,
		"kind", kind,
		"subject", subject,
	)

	return rej
}
