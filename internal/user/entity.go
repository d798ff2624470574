// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/carterperez-dev/finance-auth/internal/session"
)

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	Name         string     `db:"name"`
	Role         string     `db:"role"`
	Status       string     `db:"status"`
	TokenVersion int        `db:"token_version"`
	IsActive     bool       `db:"is_active"`
	IsLocked     bool       `db:"is_locked"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}

// Principal converts the row into the session view. Role and status are
// constrained by CHECKs in the schema, so no parsing is needed here.
func (u *User) Principal() *session.Principal {
	return &session.Principal{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         session.Role(u.Role),
		Status:       session.Status(u.Status),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
		IsLocked:     u.IsLocked,
	}
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}
