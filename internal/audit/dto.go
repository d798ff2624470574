// AngelaMos | 2026
// dto.go

package audit

import (
	"time"
)

type ListParams struct {
	Page     int
	PageSize int
	UserID   string
	Action   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type ActivityResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	UserEmail string    `json:"user_email"`
	Action    string    `json:"action"`
	Status    string    `json:"status"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToActivityResponseList(activities []Activity) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		resp := ActivityResponse{
			ID:        a.ID,
			UserEmail: a.UserEmail,
			Action:    string(a.Action),
			Status:    a.Status,
			IPAddress: a.IPAddress,
			UserAgent: a.UserAgent,
			Details:   a.Details,
			CreatedAt: a.CreatedAt,
		}
		if a.UserID != nil {
			resp.UserID = *a.UserID
		}
		responses = append(responses, resp)
	}
	return responses
}
