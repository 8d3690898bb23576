package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type assignmentRuleRepository interface {
	FindActiveByCategory(ctx context.Context, category models.Category) (*models.AssignmentRule, error)
}

type assignmentLoadRepository interface {
	OpenCaseLoads(ctx context.Context) ([]models.SupervisorLoad, error)
}

// AssignmentService picks the handling supervisor for a new case.
//
// Resolution order: the highest-priority active rule for the category wins;
// otherwise the active supervisor with the fewest open cases, ties broken by
// lowest id so the choice is deterministic. When no supervisor is available
// the case stays unassigned rather than failing intake.
type AssignmentService struct {
	rules   assignmentRuleRepository
	loads   assignmentLoadRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAssignmentService constructs an AssignmentService instance.
func NewAssignmentService(rules assignmentRuleRepository, loads assignmentLoadRepository, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{rules: rules, loads: loads, metrics: metrics, logger: logger}
}

// Assign resolves the supervisor for a category. A nil result with nil
// error means no supervisor is available.
func (s *AssignmentService) Assign(ctx context.Context, category models.Category) (*string, error) {
	rule, err := s.rules.FindActiveByCategory(ctx, category)
	if err == nil {
		s.logger.Debug("assignment matched rule",
			zap.String("rule_id", rule.ID),
			zap.String("supervisor_id", rule.SupervisorID))
		s.metrics.RecordAssignment("rule")
		return &rule.SupervisorID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to match assignment rule")
	}

	loads, err := s.loads.OpenCaseLoads(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute supervisor loads")
	}
	if len(loads) == 0 {
		s.logger.Warn("no active supervisor available for assignment",
			zap.String("category", string(category)))
		s.metrics.RecordAssignment("unassigned")
		return nil, nil
	}

	s.metrics.RecordAssignment("fallback")
	return &loads[0].SupervisorID, nil
}
