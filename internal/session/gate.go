// AngelaMos | 2026
// gate.go

package session

// Requirement declares what a route needs from a resolved principal. The
// zero value only requires authentication.
type Requirement struct {
	Approved bool
	Roles    []Role
}

// Evaluate checks p against req in a fixed order: authenticated, locked,
// inactive, status, role. A locked account never reaches the role check.
func Evaluate(p *Principal, req Requirement) *Rejection {
	if p == nil {
		return Reject(ReasonMissingCredentials)
	}

	if p.IsLocked {
		return Reject(ReasonLocked)
	}

	if !p.IsActive {
		return Reject(ReasonInactive)
	}

	if req.Approved && !p.IsApproved() {
		return Reject(ReasonNotApproved)
	}

	if len(req.Roles) > 0 && !p.HasRole(req.Roles...) {
		return Reject(ReasonForbidden)
	}

	return nil
}

// CheckAccountState runs the account gates shared by login and token
// verification: locked, inactive, then not approved.
func CheckAccountState(p *Principal) *Rejection {
	return Evaluate(p, Requirement{Approved: true})
}
