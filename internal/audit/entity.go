// AngelaMos | 2026
// entity.go

package audit

import (
	"time"
)

type Action string

const (
	ActionRegister          Action = "REGISTER"
	ActionLogin             Action = "LOGIN"
	ActionLoginFailed       Action = "LOGIN_FAILED"
	ActionLogout            Action = "LOGOUT"
	ActionLogoutAll         Action = "LOGOUT_ALL"
	ActionPasswordChanged   Action = "PASSWORD_CHANGED"
	ActionUserPasswordReset Action = "USER_PASSWORD_RESET"
	ActionForceLogout       Action = "FORCE_LOGOUT"
	ActionUserApprove       Action = "USER_APPROVE"
	ActionUserReject        Action = "USER_REJECT"
	ActionUserLock          Action = "USER_LOCK"
	ActionUserUnlock        Action = "USER_UNLOCK"
	ActionUserDeactivate    Action = "USER_DEACTIVATE"
	ActionUserActivate      Action = "USER_ACTIVATE"
	ActionUserUpdate        Action = "USER_UPDATE"
	ActionUserRoleChange    Action = "USER_ROLE_CHANGE"
	ActionUserDelete        Action = "USER_DELETE"
	ActionRevokeAllSessions Action = "REVOKE_ALL_SESSIONS"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

type Activity struct {
	ID        int64     `db:"id"`
	UserID    *string   `db:"user_id"`
	UserEmail string    `db:"user_email"`
	Action    Action    `db:"action"`
	Status    string    `db:"status"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
}

// Entry is what callers hand to Record. UserID may be empty for failed
// logins against unknown emails.
type Entry struct {
	UserID    string
	UserEmail string
	Action    Action
	Failed    bool
	IPAddress string
	UserAgent string
	Details   string
}

func (e Entry) toActivity() *Activity {
	a := &Activity{
		UserEmail: e.UserEmail,
		Action:    e.Action,
		Status:    StatusSuccess,
		IPAddress: truncate(e.IPAddress, 64),
		UserAgent: truncate(e.UserAgent, 500),
		Details:   e.Details,
	}
	if e.Failed {
		a.Status = StatusFailure
	}
	if e.UserID != "" {
		id := e.UserID
		a.UserID = &id
	}
	return a
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
