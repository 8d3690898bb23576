package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

// RuleRepository provides database access for assignment rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository creates a new instance of RuleRepository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, label, description, category, priority, supervisor_id, active, created_at, updated_at`

// List returns all rules, active first, newest within each group.
func (r *RuleRepository) List(ctx context.Context) ([]models.AssignmentRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_rules ORDER BY active DESC, created_at DESC`, ruleColumns)
	var rules []models.AssignmentRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// FindByID returns a rule by identifier.
func (r *RuleRepository) FindByID(ctx context.Context, id string) (*models.AssignmentRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_rules WHERE id = $1 LIMIT 1`, ruleColumns)
	var rule models.AssignmentRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find rule by id: %w", err)
	}
	return &rule, nil
}

// FindActiveByCategoryPriority returns the active rule for an exact
// (category, priority) pair, or sql.ErrNoRows when none exists.
func (r *RuleRepository) FindActiveByCategoryPriority(ctx context.Context, category models.Category, priority models.Priority) (*models.AssignmentRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_rules WHERE category = $1 AND priority = $2 AND active = TRUE LIMIT 1`, ruleColumns)
	var rule models.AssignmentRule
	if err := r.db.GetContext(ctx, &rule, query, category, priority); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active rule: %w", err)
	}
	return &rule, nil
}

// FindActiveByCategory returns the highest-priority active rule for a
// category, or sql.ErrNoRows when none exists. Ties within a priority
// cannot occur for active rules; the pair is unique at write time.
func (r *RuleRepository) FindActiveByCategory(ctx context.Context, category models.Category) (*models.AssignmentRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM assignment_rules WHERE category = $1 AND active = TRUE ORDER BY priority DESC LIMIT 1`, ruleColumns)
	var rule models.AssignmentRule
	if err := r.db.GetContext(ctx, &rule, query, category); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find active rule by category: %w", err)
	}
	return &rule, nil
}

// Create inserts a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *models.AssignmentRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	const query = `INSERT INTO assignment_rules (id, label, description, category, priority, supervisor_id, active, created_at, updated_at) VALUES (:id, :label, :description, :category, :priority, :supervisor_id, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// Update updates mutable fields of a rule.
func (r *RuleRepository) Update(ctx context.Context, rule *models.AssignmentRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignment_rules SET label = :label, description = :description, category = :category, priority = :priority, supervisor_id = :supervisor_id, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	return nil
}

// Deactivate marks a rule inactive without removing it.
func (r *RuleRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE assignment_rules SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	return nil
}

// DeactivateBySupervisor marks every active rule pointing at a supervisor
// inactive, used when the supervisor account is removed.
func (r *RuleRepository) DeactivateBySupervisor(ctx context.Context, supervisorID string) error {
	const query = `UPDATE assignment_rules SET active = FALSE, updated_at = $2 WHERE supervisor_id = $1 AND active = TRUE`
	if _, err := r.db.ExecContext(ctx, query, supervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate rules by supervisor: %w", err)
	}
	return nil
}
