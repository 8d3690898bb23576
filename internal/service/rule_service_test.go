package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type mockRuleRepo struct {
	rules   map[string]*models.AssignmentRule
	active  *models.AssignmentRule
	created *models.AssignmentRule
	updated *models.AssignmentRule
}

func (m *mockRuleRepo) List(ctx context.Context) ([]models.AssignmentRule, error) {
	out := make([]models.AssignmentRule, 0, len(m.rules))
	for _, rule := range m.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (m *mockRuleRepo) FindByID(ctx context.Context, id string) (*models.AssignmentRule, error) {
	rule, ok := m.rules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rule, nil
}

func (m *mockRuleRepo) FindActiveByCategoryPriority(ctx context.Context, category models.Category, priority models.Priority) (*models.AssignmentRule, error) {
	if m.active != nil && m.active.Category == category && m.active.Priority == priority {
		return m.active, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *models.AssignmentRule) error {
	rule.ID = "new-rule"
	m.created = rule
	return nil
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *models.AssignmentRule) error {
	m.updated = rule
	return nil
}

func (m *mockRuleRepo) Deactivate(ctx context.Context, id string) error {
	if rule, ok := m.rules[id]; ok {
		rule.Active = false
	}
	return nil
}

type mockRuleUsers struct {
	users map[string]*models.User
}

func (m *mockRuleUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

const supervisorID = "1b671a64-40d5-491e-99b0-da01ff1f3341"

func newRuleService(repo *mockRuleRepo, audit *mockAudit) *RuleService {
	users := &mockRuleUsers{users: map[string]*models.User{
		supervisorID: {ID: supervisorID, Role: models.RoleSupervisor, Status: models.StatusActive},
	}}
	return NewRuleService(repo, users, audit, validator.New(), zap.NewNop())
}

func TestRuleCreate(t *testing.T) {
	repo := &mockRuleRepo{rules: map[string]*models.AssignmentRule{}}
	audit := &mockAudit{}
	svc := newRuleService(repo, audit)

	rule, err := svc.Create(context.Background(), "admin-1", RuleCreateRequest{
		Label:        "Urgent harassment to lead reviewer",
		Category:     models.CategoryHarassment,
		Priority:     models.PriorityUrgent,
		SupervisorID: supervisorID,
	})
	require.NoError(t, err)
	assert.True(t, rule.Active)
	assert.Equal(t, models.AuditActionRuleCreate, audit.lastAction())
}

func TestRuleCreateConflictNamesExistingRule(t *testing.T) {
	repo := &mockRuleRepo{
		rules: map[string]*models.AssignmentRule{},
		active: &models.AssignmentRule{
			ID:       "r1",
			Label:    "Existing urgent harassment rule",
			Category: models.CategoryHarassment,
			Priority: models.PriorityUrgent,
			Active:   true,
		},
	}
	svc := newRuleService(repo, &mockAudit{})

	_, err := svc.Create(context.Background(), "admin-1", RuleCreateRequest{
		Label:        "Duplicate coverage",
		Category:     models.CategoryHarassment,
		Priority:     models.PriorityUrgent,
		SupervisorID: supervisorID,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Existing urgent harassment rule")
}

func TestRuleCreateRejectsNonSupervisor(t *testing.T) {
	repo := &mockRuleRepo{rules: map[string]*models.AssignmentRule{}}
	users := &mockRuleUsers{users: map[string]*models.User{
		supervisorID: {ID: supervisorID, Role: models.RoleReporter, Status: models.StatusActive},
	}}
	svc := NewRuleService(repo, users, &mockAudit{}, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), "admin-1", RuleCreateRequest{
		Label:        "Routed to the wrong role",
		Category:     models.CategoryOther,
		Priority:     models.PriorityLow,
		SupervisorID: supervisorID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRuleUpdateAllowsKeepingOwnPair(t *testing.T) {
	existing := &models.AssignmentRule{
		ID:           "r1",
		Label:        "Urgent harassment",
		Category:     models.CategoryHarassment,
		Priority:     models.PriorityUrgent,
		SupervisorID: supervisorID,
		Active:       true,
	}
	repo := &mockRuleRepo{rules: map[string]*models.AssignmentRule{"r1": existing}, active: existing}
	svc := newRuleService(repo, &mockAudit{})

	_, err := svc.Update(context.Background(), "admin-1", "r1", RuleUpdateRequest{
		Label:        "Urgent harassment, renamed",
		Category:     models.CategoryHarassment,
		Priority:     models.PriorityUrgent,
		SupervisorID: supervisorID,
		Active:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Urgent harassment, renamed", repo.updated.Label)
}

func TestRuleDeactivate(t *testing.T) {
	existing := &models.AssignmentRule{ID: "r1", Active: true}
	repo := &mockRuleRepo{rules: map[string]*models.AssignmentRule{"r1": existing}}
	audit := &mockAudit{}
	svc := newRuleService(repo, audit)

	require.NoError(t, svc.Deactivate(context.Background(), "admin-1", "r1"))
	assert.False(t, existing.Active)
	assert.Equal(t, models.AuditActionRuleDeactivate, audit.lastAction())
}
