// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/finance-auth/internal/core"
)

var userCols = []string{
	"id", "email", "password_hash", "name", "role", "status", "token_version",
	"is_active", "is_locked", "created_at", "updated_at", "deleted_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO users.*RETURNING token_version`).
		WithArgs("u-1", "ada@example.com", "hash", "Ada", "user", "pending").
		WillReturnRows(sqlmock.NewRows(
			[]string{"token_version", "is_active", "is_locked", "created_at", "updated_at"},
		).AddRow(1, true, false, now, now))

	u := &User{
		ID:           "u-1",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Name:         "Ada",
		Role:         "user",
		Status:       "pending",
	}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, 1, u.TokenVersion)
	assert.True(t, u.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &User{ID: "u-1", Email: "ada@example.com"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestRepositoryGetByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM users\s+WHERE email = \$1 AND deleted_at IS NULL`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u-1", "ada@example.com", "hash", "Ada", "admin", "approved", 4,
			true, false, now, now, nil,
		))

	u, err := repo.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)

	p := u.Principal()
	assert.Equal(t, 4, p.TokenVersion)
	assert.Equal(t, "admin", string(p.Role))
	assert.True(t, p.IsApproved())

	mock.ExpectQuery(`(?s)FROM users\s+WHERE email = \$1`).
		WithArgs("Ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = repo.GetByEmail(context.Background(), "Ada@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryIncrementTokenVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SET token_version = token_version \+ 1.*RETURNING token_version`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(4))

	version, err := repo.IncrementTokenVersion(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 4, version)

	mock.ExpectQuery(`(?s)SET token_version = token_version \+ 1`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}))

	_, err = repo.IncrementTokenVersion(context.Background(), "gone")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryPasswordAndVersionInOneStatement(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SET password_hash = \$2,\s+token_version = token_version \+ 1.*RETURNING token_version`).
		WithArgs("u-1", "new-hash").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(2))

	version, err := repo.UpdatePasswordHashAndIncrementVersion(
		context.Background(), "u-1", "new-hash")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryApproveGuardsStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`(?s)SET status = 'approved'.*status = 'pending'`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Approve(context.Background(), "u-1"))

	mock.ExpectExec(`(?s)SET status = 'approved'`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Approve(context.Background(), "u-1"), core.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRejectBumpsVersion(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SET status = 'rejected',\s+token_version = token_version \+ 1.*status IN \('pending', 'approved'\)`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}).AddRow(3))

	version, err := repo.RejectAndIncrementVersion(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	mock.ExpectQuery(`(?s)SET status = 'rejected'`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"token_version"}))

	_, err = repo.RejectAndIncrementVersion(context.Background(), "u-1")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySetLockedMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`(?s)SET is_locked = \$2`).
		WithArgs("gone", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetLocked(context.Background(), "gone", true)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySetActive(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`(?s)UPDATE users\s+SET is_active = \$2, updated_at = NOW\(\)\s+WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs("u-1", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(`(?s)SET is_active = \$2`).
		WithArgs("gone", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetActive(context.Background(), "u-1", false))

	err := repo.SetActive(context.Background(), "gone", true)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM users WHERE deleted_at IS NULL AND \(email ILIKE \$1 OR name ILIKE \$1\) AND status = \$2`).
		WithArgs(`%100\%%`, "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`(?s)FROM users.*ORDER BY created_at DESC.*LIMIT \$3 OFFSET \$4`).
		WithArgs(`%100\%%`, "pending", 20, 0).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			"u-1", "ada@example.com", "hash", "Ada 100%", "user", "pending", 1,
			true, false, now, now, nil,
		))

	users, total, err := repo.List(context.Background(), ListUsersParams{
		Search: "100%",
		Status: "pending",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "u-1", users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCountByStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 5).
			AddRow("pending", 2))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{{"approved", 5}, {"pending", 2}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryIncrementAllTokenVersions(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`(?s)SET token_version = token_version \+ 1.*WHERE deleted_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.IncrementAllTokenVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
