// AngelaMos | 2026
// service.go

package audit

import (
	"context"
	"log/slog"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Record is best-effort: a failed insert is logged and swallowed so the
// audited operation, which has already committed, still succeeds.
func (s *Service) Record(ctx context.Context, e Entry) {
	if err := s.repo.Insert(ctx, e.toActivity()); err != nil {
		s.logger.WarnContext(ctx, "failed to record activity",
			"action", e.Action,
			"user_id", e.UserID,
			"error", err,
		)
	}
}

func (s *Service) List(
	ctx context.Context,
	params ListParams,
) ([]Activity, int, error) {
	return s.repo.List(ctx, params)
}
