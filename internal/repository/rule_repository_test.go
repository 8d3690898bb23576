package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

func TestFindActiveByCategoryPriority(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "label", "description", "category", "priority", "supervisor_id", "active", "created_at", "updated_at"}).
		AddRow("r1", "Urgent harassment", nil, string(models.CategoryHarassment), int(models.PriorityUrgent), "sup-a", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label, description, category, priority, supervisor_id, active, created_at, updated_at FROM assignment_rules WHERE category = $1 AND priority = $2 AND active = TRUE LIMIT 1")).
		WithArgs(models.CategoryHarassment, models.PriorityUrgent).
		WillReturnRows(rows)

	rule, err := repo.FindActiveByCategoryPriority(context.Background(), models.CategoryHarassment, models.PriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, "sup-a", rule.SupervisorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByCategoryPriorityNoMatch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label, description, category, priority, supervisor_id, active, created_at, updated_at FROM assignment_rules WHERE category = $1 AND priority = $2 AND active = TRUE LIMIT 1")).
		WithArgs(models.CategoryOther, models.PriorityLow).
		WillReturnError(sql.ErrNoRows)

	rule, err := repo.FindActiveByCategoryPriority(context.Background(), models.CategoryOther, models.PriorityLow)
	assert.Nil(t, rule)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByCategoryPicksHighestPriority(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "label", "description", "category", "priority", "supervisor_id", "active", "created_at", "updated_at"}).
		AddRow("r2", "Urgent harassment", nil, string(models.CategoryHarassment), int(models.PriorityUrgent), "sup-b", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, label, description, category, priority, supervisor_id, active, created_at, updated_at FROM assignment_rules WHERE category = $1 AND active = TRUE ORDER BY priority DESC LIMIT 1")).
		WithArgs(models.CategoryHarassment).
		WillReturnRows(rows)

	rule, err := repo.FindActiveByCategory(context.Background(), models.CategoryHarassment)
	require.NoError(t, err)
	assert.Equal(t, "sup-b", rule.SupervisorID)
	assert.Equal(t, models.PriorityUrgent, rule.Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec("INSERT INTO assignment_rules").WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.AssignmentRule{
		Label:        "Urgent harassment",
		Category:     models.CategoryHarassment,
		Priority:     models.PriorityUrgent,
		SupervisorID: "sup-a",
		Active:       true,
	}
	err := repo.Create(context.Background(), rule)
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateBySupervisor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRuleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE assignment_rules SET active = FALSE, updated_at = $2 WHERE supervisor_id = $1 AND active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.DeactivateBySupervisor(context.Background(), "sup-a")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
