// AngelaMos | 2026
// rejection.go

package session

import (
	"errors"
)

type Reason string

const (
	ReasonMissingCredentials Reason = "missing_credentials"
	ReasonMalformed          Reason = "malformed"
	ReasonBadSignature       Reason = "bad_signature"
	ReasonExpired            Reason = "expired"
	ReasonWrongTokenType     Reason = "wrong_token_type"
	ReasonUnknownSubject     Reason = "unknown_subject"
	ReasonStaleToken         Reason = "stale_token"
	ReasonLocked             Reason = "locked"
	ReasonInactive           Reason = "inactive"
	ReasonNotApproved        Reason = "not_approved"
	ReasonForbidden          Reason = "forbidden"
)

// IsUserFacing is true for account-state reasons the holder already knows
// about. Every other reason must be reported as a generic credential
// failure.
func (r Reason) IsUserFacing() bool {
	switch r {
	case ReasonLocked, ReasonInactive, ReasonNotApproved, ReasonForbidden:
		return true
	default:
		return false
	}
}

// Rejection is returned when a token or principal fails a check. It is an
// expected outcome, distinct from storage or signing failures.
type Rejection struct {
	Reason Reason
}

func Reject(reason Reason) *Rejection {
	return &Rejection{Reason: reason}
}

func (r *Rejection) Error() string {
	return "session rejected: " + string(r.Reason)
}

// Is matches any *Rejection with the same reason, so callers can write
// errors.Is(err, session.Reject(session.ReasonStaleToken)).
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == r.Reason
}

func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
