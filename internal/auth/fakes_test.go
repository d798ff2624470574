// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/finance-auth/internal/audit"
	"github.com/carterperez-dev/finance-auth/internal/config"
	"github.com/carterperez-dev/finance-auth/internal/core"
	"github.com/carterperez-dev/finance-auth/internal/session"
)

const testSecret = "test-secret-that-is-at-least-32-bytes!!"

var testHasherParams = core.Argon2Params{
	Time:    1,
	Memory:  1024,
	Threads: 1,
	KeyLen:  32,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storedUser struct {
	principal session.Principal
	hash      string
}

type snapshot struct {
	hash    string
	version int
}

// fakeUsers applies every mutation under one lock, mirroring the single
// statement updates of the SQL repository.
type fakeUsers struct {
	mu        sync.Mutex
	users     map[string]*storedUser
	loadErr   error
	snapshots []snapshot
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*storedUser)}
}

func (f *fakeUsers) add(p session.Principal, hash string) *session.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	f.users[p.ID] = &storedUser{principal: p, hash: hash}
	out := p
	return &out
}

func (f *fakeUsers) byEmail(email string) *storedUser {
	for _, u := range f.users {
		if u.principal.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUsers) version(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id].principal.TokenVersion
}

func (f *fakeUsers) update(id string, fn func(p *session.Principal)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.users[id].principal)
}

func (f *fakeUsers) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUsers) LoadPrincipalByIdentity(
	_ context.Context,
	email string,
) (*session.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	u := f.byEmail(email)
	if u == nil {
		return nil, core.ErrNotFound
	}
	f.snapshots = append(f.snapshots, snapshot{hash: u.hash, version: u.principal.TokenVersion})
	p := u.principal
	return &p, nil
}

func (f *fakeUsers) IncrementTokenVersion(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	u.principal.TokenVersion++
	return u.principal.TokenVersion, nil
}

func (f *fakeUsers) UpdatePasswordHashAndIncrementVersion(
	_ context.Context,
	id, passwordHash string,
) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	u.hash = passwordHash
	u.principal.TokenVersion++
	return u.principal.TokenVersion, nil
}

func (f *fakeUsers) GetCredentialsByEmail(
	_ context.Context,
	email string,
) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.byEmail(email)
	if u == nil {
		return nil, core.ErrNotFound
	}
	p := u.principal
	return &Credentials{Principal: &p, PasswordHash: u.hash}, nil
}

func (f *fakeUsers) GetCredentialsByID(
	_ context.Context,
	id string,
) (*Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	p := u.principal
	return &Credentials{Principal: &p, PasswordHash: u.hash}, nil
}

func (f *fakeUsers) Create(
	_ context.Context,
	email, passwordHash, name string,
) (*session.Principal, error) {
	f.mu.Lock()
	if f.byEmail(email) != nil {
		f.mu.Unlock()
		return nil, core.ErrDuplicateKey
	}
	f.mu.Unlock()

	return f.add(session.Principal{
		Email:        email,
		Name:         name,
		Role:         session.RoleUser,
		Status:       session.StatusPending,
		TokenVersion: 1,
		IsActive:     true,
	}, passwordHash), nil
}

func (f *fakeUsers) UpdatePasswordHash(_ context.Context, id, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.hash = passwordHash
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *fakeRecorder) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *fakeRecorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:              testSecret,
		Algorithm:           "HS256",
		AccessTokenExpire:   15 * time.Minute,
		RefreshTokenExpire:  7 * 24 * time.Hour,
		Issuer:              "finance-auth",
		Audience:            "finance-auth-api",
		RotateRefreshTokens: true,
	}
}

type harness struct {
	clock    *fakeClock
	users    *fakeUsers
	recorder *fakeRecorder
	hasher   *core.PasswordHasher
	tokens   *TokenManager
	verifier *Verifier
	service  *Service
}

func newHarness(t *testing.T, mutate ...func(*config.JWTConfig)) *harness {
	t.Helper()

	cfg := testJWTConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	clock := newFakeClock()
	tokens, err := NewTokenManager(cfg, clock.Now)
	require.NoError(t, err)

	users := newFakeUsers()
	recorder := &fakeRecorder{}
	hasher := core.NewPasswordHasher(testHasherParams)
	verifier := NewVerifier(tokens, users, nil)

	return &harness{
		clock:    clock,
		users:    users,
		recorder: recorder,
		hasher:   hasher,
		tokens:   tokens,
		verifier: verifier,
		service: NewService(ServiceConfig{
			Users:               users,
			Tokens:              tokens,
			Verifier:            verifier,
			Hasher:              hasher,
			Activity:            recorder,
			RotateRefreshTokens: cfg.RotateRefreshTokens,
		}),
	}
}

// addUser stores an approved, active principal with the given password.
func (h *harness) addUser(
	t *testing.T,
	email, password string,
	mutate ...func(p *session.Principal),
) *session.Principal {
	t.Helper()

	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)

	p := session.Principal{
		Email:        email,
		Name:         "Test User",
		Role:         session.RoleUser,
		Status:       session.StatusApproved,
		TokenVersion: 1,
		IsActive:     true,
	}
	for _, m := range mutate {
		m(&p)
	}

	return h.users.add(p, hash)
}
