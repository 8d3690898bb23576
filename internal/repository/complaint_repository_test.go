package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

func TestCreateComplaint(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	mock.ExpectExec("INSERT INTO complaints").WillReturnResult(sqlmock.NewResult(1, 1))

	complaint := &models.Complaint{
		AnonymousCode: "REP-2026-0001",
		Title:         "Unpaid overtime",
		Description:   "details",
		Category:      models.CategoryNonPayment,
		Priority:      models.PriorityHigh,
		Status:        models.ComplaintPending,
	}
	err := repo.Create(context.Background(), complaint)
	require.NoError(t, err)
	assert.NotEmpty(t, complaint.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountCreatedInYear(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(41)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints WHERE EXTRACT(YEAR FROM created_at) = $1")).
		WithArgs(2026).
		WillReturnRows(rows)

	count, err := repo.CountCreatedInYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 41, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenCaseLoadsOrdering(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	rows := sqlmock.NewRows([]string{"supervisor_id", "open_cases"}).
		AddRow("sup-a", 1).
		AddRow("sup-b", 1).
		AddRow("sup-c", 4)
	mock.ExpectQuery("SELECT u.id AS supervisor_id, COUNT\\(c.id\\) AS open_cases FROM users u").
		WillReturnRows(rows)

	loads, err := repo.OpenCaseLoads(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 3)
	assert.Equal(t, "sup-a", loads[0].SupervisorID)
	assert.Equal(t, 1, loads[0].OpenCases)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignSupervisor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	supervisor := "sup-a"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE complaints SET supervisor_id = $2, updated_at = $3 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AssignSupervisor(context.Background(), "c1", &supervisor)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListComplaintsScopedToReporter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewComplaintRepository(db)

	now := time.Now()
	reporter := "rep-1"
	rows := sqlmock.NewRows([]string{"id", "anonymous_code", "title", "description", "category", "priority", "status", "location", "reporter_id", "supervisor_id", "created_at", "updated_at"}).
		AddRow("c1", "REP-2026-0001", "title", "desc", string(models.CategoryOther), int(models.PriorityLow), string(models.ComplaintPending), nil, reporter, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, anonymous_code, title, description, category, priority, status, location, reporter_id, supervisor_id, created_at, updated_at FROM complaints WHERE 1=1 AND reporter_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs(reporter).
		WillReturnRows(rows)

	countRows := sqlmock.NewRows([]string{"count"}).AddRow(1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM complaints WHERE 1=1 AND reporter_id = $1")).
		WithArgs(reporter).
		WillReturnRows(countRows)

	complaints, total, err := repo.List(context.Background(), models.ComplaintFilter{ReporterID: reporter})
	require.NoError(t, err)
	assert.Len(t, complaints, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
