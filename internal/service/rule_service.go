package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type ruleRepository interface {
	List(ctx context.Context) ([]models.AssignmentRule, error)
	FindByID(ctx context.Context, id string) (*models.AssignmentRule, error)
	FindActiveByCategoryPriority(ctx context.Context, category models.Category, priority models.Priority) (*models.AssignmentRule, error)
	Create(ctx context.Context, rule *models.AssignmentRule) error
	Update(ctx context.Context, rule *models.AssignmentRule) error
	Deactivate(ctx context.Context, id string) error
}

type ruleUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RuleCreateRequest carries the payload for creating an assignment rule.
type RuleCreateRequest struct {
	Label        string          `json:"label" validate:"required,min=3"`
	Description  string          `json:"description"`
	Category     models.Category `json:"category" validate:"required,oneof=HARASSMENT DISCRIMINATION NON_PAYMENT SEXUAL_HARASSMENT RIGHTS_VIOLATION OTHER"`
	Priority     models.Priority `json:"priority" validate:"min=0,max=3"`
	SupervisorID string          `json:"supervisor_id" validate:"required,uuid"`
}

// RuleUpdateRequest carries the payload for updating an assignment rule.
type RuleUpdateRequest struct {
	Label        string          `json:"label" validate:"required,min=3"`
	Description  string          `json:"description"`
	Category     models.Category `json:"category" validate:"required,oneof=HARASSMENT DISCRIMINATION NON_PAYMENT SEXUAL_HARASSMENT RIGHTS_VIOLATION OTHER"`
	Priority     models.Priority `json:"priority" validate:"min=0,max=3"`
	SupervisorID string          `json:"supervisor_id" validate:"required,uuid"`
	Active       bool            `json:"active"`
}

// RuleService manages assignment rules. Only one active rule may exist per
// (category, priority) pair; write paths enforce that before touching storage.
type RuleService struct {
	repo      ruleRepository
	users     ruleUserRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRuleService constructs a RuleService instance.
func NewRuleService(repo ruleRepository, users ruleUserRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *RuleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RuleService{repo: repo, users: users, audit: audit, validator: validate, logger: logger}
}

// List returns all rules.
func (s *RuleService) List(ctx context.Context) ([]models.AssignmentRule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	return rules, nil
}

// Create adds a new active rule after checking the supervisor and the
// (category, priority) uniqueness constraint.
func (s *RuleService) Create(ctx context.Context, actorID string, req RuleCreateRequest) (*models.AssignmentRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	if err := s.checkSupervisor(ctx, req.SupervisorID); err != nil {
		return nil, err
	}
	if err := s.checkPairFree(ctx, req.Category, req.Priority, ""); err != nil {
		return nil, err
	}

	rule := &models.AssignmentRule{
		Label:        req.Label,
		Category:     req.Category,
		Priority:     req.Priority,
		SupervisorID: req.SupervisorID,
		Active:       true,
	}
	if req.Description != "" {
		rule.Description = &req.Description
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rule")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionRuleCreate,
		ResourceTable: strPtr("assignment_rules"),
		ResourceID:    &rule.ID,
		Success:       true,
	})

	return rule, nil
}

// Update replaces the mutable fields of a rule.
func (s *RuleService) Update(ctx context.Context, actorID, ruleID string, req RuleUpdateRequest) (*models.AssignmentRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}

	if err := s.checkSupervisor(ctx, req.SupervisorID); err != nil {
		return nil, err
	}
	if req.Active {
		if err := s.checkPairFree(ctx, req.Category, req.Priority, ruleID); err != nil {
			return nil, err
		}
	}

	rule.Label = req.Label
	rule.Category = req.Category
	rule.Priority = req.Priority
	rule.SupervisorID = req.SupervisorID
	rule.Active = req.Active
	rule.Description = nil
	if req.Description != "" {
		rule.Description = &req.Description
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update rule")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionRuleUpdate,
		ResourceTable: strPtr("assignment_rules"),
		ResourceID:    &rule.ID,
		Success:       true,
	})

	return rule, nil
}

// Deactivate retires a rule without deleting it, preserving history.
func (s *RuleService) Deactivate(ctx context.Context, actorID, ruleID string) error {
	if _, err := s.repo.FindByID(ctx, ruleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "rule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rule")
	}

	if err := s.repo.Deactivate(ctx, ruleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate rule")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionRuleDeactivate,
		ResourceTable: strPtr("assignment_rules"),
		ResourceID:    &ruleID,
		Success:       true,
	})

	return nil
}

func (s *RuleService) checkSupervisor(ctx context.Context, supervisorID string) error {
	supervisor, err := s.users.FindByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "supervisor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	if supervisor.Role != models.RoleSupervisor {
		return appErrors.Clone(appErrors.ErrValidation, "target user is not a supervisor")
	}
	if supervisor.Status != models.StatusActive {
		return appErrors.Clone(appErrors.ErrValidation, "supervisor account is not active")
	}
	return nil
}

// checkPairFree rejects a write that would leave two active rules for the
// same (category, priority) pair. The conflict message names the existing
// rule so an operator can find it.
func (s *RuleService) checkPairFree(ctx context.Context, category models.Category, priority models.Priority, excludeID string) error {
	existing, err := s.repo.FindActiveByCategoryPriority(ctx, category, priority)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rule uniqueness")
	}
	if existing.ID == excludeID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("an active rule already covers this category and priority: %s", existing.Label))
}
