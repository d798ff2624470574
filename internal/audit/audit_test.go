// AngelaMos | 2026
// audit_test.go

package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "pgx")), mock
}

func TestRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO activity_logs.*RETURNING id, created_at`).
		WithArgs("u-1", "ada@example.com", "LOGIN", StatusSuccess, "10.0.0.1", "curl", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, now))

	a := Entry{
		UserID:    "u-1",
		UserEmail: "ada@example.com",
		Action:    ActionLogin,
		IPAddress: "10.0.0.1",
		UserAgent: "curl",
	}.toActivity()

	require.NoError(t, repo.Insert(context.Background(), a))
	assert.Equal(t, int64(7), a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM activity_logs WHERE TRUE AND action = \$1`).
		WithArgs("LOGIN_FAILED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cols := []string{
		"id", "user_id", "user_email", "action", "status",
		"ip_address", "user_agent", "details", "created_at",
	}
	mock.ExpectQuery(`(?s)FROM activity_logs.*LIMIT \$2 OFFSET \$3`).
		WithArgs("LOGIN_FAILED", 50, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(3, nil, "ghost@example.com", "LOGIN_FAILED", StatusFailure, "", "", "", time.Now()))

	items, total, err := repo.List(context.Background(), ListParams{Action: "LOGIN_FAILED"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].UserID)

	resp := ToActivityResponseList(items)
	assert.Equal(t, "", resp[0].UserID)
	assert.Equal(t, "LOGIN_FAILED", resp[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingRepo struct {
	Repository
	calls int
}

func (f *failingRepo) Insert(context.Context, *Activity) error {
	f.calls++
	return errors.New("db down")
}

func TestServiceRecordSwallowsErrors(t *testing.T) {
	repo := &failingRepo{}
	svc := NewService(repo, nil)

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), Entry{Action: ActionLogout})
	})
	assert.Equal(t, 1, repo.calls)
}

func TestEntryToActivity(t *testing.T) {
	a := Entry{
		Action:    ActionLoginFailed,
		Failed:    true,
		UserAgent: strings.Repeat("x", 600),
	}.toActivity()

	assert.Equal(t, StatusFailure, a.Status)
	assert.Nil(t, a.UserID)
	assert.Len(t, a.UserAgent, 500)
}
