// AngelaMos | 2026
// principal.go

package session

import (
	"fmt"
)

type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// CanManage reports whether an actor with role r may modify, lock, reset or
// force-logout an account holding target. Admin accounts are reserved to
// super admins.
func (r Role) CanManage(target Role) bool {
	if !r.IsAdmin() {
		return false
	}
	if target.IsAdmin() {
		return r == RoleSuperAdmin
	}
	return true
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// CanTransitionTo encodes the approval workflow. Rejected is terminal.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusRejected
	default:
		return false
	}
}

// Principal is the live view of an account as read from the ledger. Values
// are never reconstructed from token claims.
type Principal struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Status       Status
	TokenVersion int
	IsActive     bool
	IsLocked     bool
}

func (p *Principal) IsApproved() bool {
	return p.Status == StatusApproved
}

func (p *Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
