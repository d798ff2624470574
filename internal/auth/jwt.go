// AngelaMos | 2026
// jwt.go

package auth

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/carterperez-dev/finance-auth/internal/config"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

const (
	claimType    = "type"
	claimVersion = "version"
	claimRole    = "role"
	claimStatus  = "status"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// TokenManager signs and decodes HMAC tokens. It never touches storage:
// the principal passed to Issue* must have just been read from the ledger.
type TokenManager struct {
	key    jwk.Key
	alg    jwa.SignatureAlgorithm
	config config.JWTConfig
	clock  Clock
}

func NewTokenManager(cfg config.JWTConfig, clock Clock) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt config: %w", err)
	}

	algFn, ok := signingAlgorithms[cfg.Algorithm]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	alg := algFn()

	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	if setErr := key.Set(jwk.AlgorithmKey, alg); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	if clock == nil {
		clock = time.Now
	}

	return &TokenManager{
		key:    key,
		alg:    alg,
		config: cfg,
		clock:  clock,
	}, nil
}

var signingAlgorithms = map[string]func() jwa.SignatureAlgorithm{
	"HS256": jwa.HS256,
	"HS384": jwa.HS384,
	"HS512": jwa.HS512,
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.config.AccessTokenExpire
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.config.RefreshTokenExpire
}

func (m *TokenManager) Now() time.Time {
	return m.clock()
}

func (m *TokenManager) IssueAccessToken(p *session.Principal) (string, error) {
	now := m.clock()

	token, err := m.baseBuilder(p, now, m.config.AccessTokenExpire).
		NotBefore(now).
		Claim(claimRole, string(p.Role)).
		Claim(claimStatus, string(p.Status)).
		Claim(claimType, string(KindAccess)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build access token: %w", err)
	}

	return m.sign(token)
}

// IssueRefreshToken omits role and status; both are re-read from storage
// when the token is redeemed.
func (m *TokenManager) IssueRefreshToken(p *session.Principal) (string, error) {
	now := m.clock()

	token, err := m.baseBuilder(p, now, m.config.RefreshTokenExpire).
		Claim(claimType, string(KindRefresh)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build refresh token: %w", err)
	}

	return m.sign(token)
}

func (m *TokenManager) baseBuilder(
	p *session.Principal,
	now time.Time,
	ttl time.Duration,
) *jwt.Builder {
	return jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(m.config.Issuer).
		Audience([]string{m.config.Audience}).
		Subject(p.Email).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(claimVersion, p.TokenVersion)
}

func (m *TokenManager) sign(token jwt.Token) (string, error) {
	signed, err := jwt.Sign(token, jwt.WithKey(m.alg, m.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return string(signed), nil
}

// decodedToken holds the claims the verifier acts on. Role and status are
// never read back: authorization uses the live principal.
type decodedToken struct {
	ID        string
	Subject   string
	Kind      TokenKind
	Version   int
	ExpiresAt time.Time
}

// decode performs the structural and cryptographic checks only. Expiry,
// kind and freshness are left to the Verifier so they run against its
// clock and ledger in a fixed order.
func (m *TokenManager) decode(raw string) (*decodedToken, *session.Rejection) {
	if raw == "" || strings.Count(raw, ".") != 2 {
		return nil, session.Reject(session.ReasonMalformed)
	}

	if _, err := jwt.ParseInsecure([]byte(raw)); err != nil {
		return nil, session.Reject(session.ReasonMalformed)
	}

	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(m.alg, m.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, session.Reject(session.ReasonBadSignature)
	}

	if !m.issuedByUs(token) {
		return nil, session.Reject(session.ReasonBadSignature)
	}

	exp, ok := token.Expiration()
	if !ok || exp.IsZero() {
		return nil, session.Reject(session.ReasonMalformed)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, session.Reject(session.ReasonMalformed)
	}

	var versionFloat float64
	if err := token.Get(claimVersion, &versionFloat); err != nil {
		return nil, session.Reject(session.ReasonMalformed)
	}
	if !validVersion(versionFloat) {
		return nil, session.Reject(session.ReasonMalformed)
	}

	var kind string
	//nolint:errcheck // a missing type claim fails the kind check
	_ = token.Get(claimType, &kind)

	jti, _ := token.JwtID()

	return &decodedToken{
		ID:        jti,
		Subject:   subject,
		Kind:      TokenKind(kind),
		Version:   int(versionFloat),
		ExpiresAt: exp,
	}, nil
}

// validVersion accepts only whole numbers that fit the token_version
// column. JSON numbers decode as float64, so 1.9 must not pass as 1.
func validVersion(v float64) bool {
	return v == math.Trunc(v) && v >= 1 && v <= math.MaxInt32
}

func (m *TokenManager) issuedByUs(token jwt.Token) bool {
	if m.config.Issuer != "" {
		iss, ok := token.Issuer()
		if !ok || iss != m.config.Issuer {
			return false
		}
	}

	if m.config.Audience != "" {
		aud, ok := token.Audience()
		if !ok || !slices.Contains(aud, m.config.Audience) {
			return false
		}
	}

	return true
}
