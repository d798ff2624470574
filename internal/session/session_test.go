// AngelaMos | 2026
// session_test.go

package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvedUser() *Principal {
	return &Principal{
		ID:           "u-1",
		Email:        "ada@example.com",
		Role:         RoleUser,
		Status:       StatusApproved,
		TokenVersion: 1,
		IsActive:     true,
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("super_admin")
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, r)

	_, err = ParseRole("ADMIN")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("pending")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)

	_, err = ParseStatus("deleted")
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusApproved, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_to_%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestRoleCanManage(t *testing.T) {
	assert.True(t, RoleSuperAdmin.CanManage(RoleAdmin))
	assert.True(t, RoleSuperAdmin.CanManage(RoleUser))
	assert.True(t, RoleAdmin.CanManage(RoleUser))
	assert.False(t, RoleAdmin.CanManage(RoleAdmin))
	assert.False(t, RoleAdmin.CanManage(RoleSuperAdmin))
	assert.False(t, RoleUser.CanManage(RoleUser))
}

func TestEvaluate(t *testing.T) {
	admins := []Role{RoleAdmin, RoleSuperAdmin}

	tests := []struct {
		name   string
		mutate func(p *Principal)
		nilP   bool
		req    Requirement
		want   Reason
	}{
		{name: "nil principal", nilP: true, want: ReasonMissingCredentials},
		{name: "authenticated only", mutate: func(p *Principal) { p.Status = StatusPending }},
		{name: "approved passes", req: Requirement{Approved: true}},
		{
			name:   "pending rejected by approved gate",
			mutate: func(p *Principal) { p.Status = StatusPending },
			req:    Requirement{Approved: true},
			want:   ReasonNotApproved,
		},
		{
			name:   "admin not exempt from approved gate",
			mutate: func(p *Principal) { p.Role = RoleAdmin; p.Status = StatusPending },
			req:    Requirement{Approved: true, Roles: admins},
			want:   ReasonNotApproved,
		},
		{
			name: "wrong role",
			req:  Requirement{Approved: true, Roles: admins},
			want: ReasonForbidden,
		},
		{
			name:   "inactive before status",
			mutate: func(p *Principal) { p.IsActive = false; p.Status = StatusPending },
			req:    Requirement{Approved: true},
			want:   ReasonInactive,
		},
		{
			name: "locked wins over everything",
			mutate: func(p *Principal) {
				p.IsLocked = true
				p.IsActive = false
				p.Status = StatusPending
			},
			req:  Requirement{Approved: true, Roles: admins},
			want: ReasonLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *Principal
			if !tt.nilP {
				p = approvedUser()
				if tt.mutate != nil {
					tt.mutate(p)
				}
			}

			rej := Evaluate(p, tt.req)
			if tt.want == "" {
				assert.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			assert.Equal(t, tt.want, rej.Reason)
		})
	}
}

func TestRejectionMatching(t *testing.T) {
	err := fmt.Errorf("verify: %w", Reject(ReasonStaleToken))

	assert.True(t, errors.Is(err, Reject(ReasonStaleToken)))
	assert.False(t, errors.Is(err, Reject(ReasonExpired)))

	reason, ok := ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, ReasonStaleToken, reason)

	_, ok = ReasonOf(errors.New("db down"))
	assert.False(t, ok)
}

func TestReasonIsUserFacing(t *testing.T) {
	for _, r := range []Reason{ReasonLocked, ReasonInactive, ReasonNotApproved, ReasonForbidden} {
		assert.True(t, r.IsUserFacing(), r)
	}
	for _, r := range []Reason{
		ReasonMalformed,
		ReasonBadSignature,
		ReasonExpired,
		ReasonWrongTokenType,
		ReasonUnknownSubject,
		ReasonStaleToken,
		ReasonMissingCredentials,
	} {
		assert.False(t, r.IsUserFacing(), r)
	}
}
