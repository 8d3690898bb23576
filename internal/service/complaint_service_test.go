package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type mockComplaintRepo struct {
	complaints map[string]*models.Complaint
	yearCount  int
	created    *models.Complaint
	lastFilter models.ComplaintFilter
}

func (m *mockComplaintRepo) Create(ctx context.Context, complaint *models.Complaint) error {
	complaint.ID = "new-complaint"
	m.created = complaint
	return nil
}

func (m *mockComplaintRepo) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	complaint, ok := m.complaints[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return complaint, nil
}

func (m *mockComplaintRepo) CountCreatedInYear(ctx context.Context, year int) (int, error) {
	return m.yearCount, nil
}

func (m *mockComplaintRepo) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockComplaintRepo) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error {
	if complaint, ok := m.complaints[id]; ok {
		complaint.Status = status
	}
	return nil
}

func (m *mockComplaintRepo) AssignSupervisor(ctx context.Context, id string, supervisorID *string) error {
	if complaint, ok := m.complaints[id]; ok {
		complaint.SupervisorID = supervisorID
	}
	return nil
}

type mockAssigner struct {
	supervisorID *string
	err          error
}

func (m *mockAssigner) Assign(ctx context.Context, category models.Category) (*string, error) {
	return m.supervisorID, m.err
}

type mockComplaintUsers struct {
	users map[string]*models.User
}

func (m *mockComplaintUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newComplaintService(repo *mockComplaintRepo, assigner *mockAssigner, users *mockComplaintUsers, audit *mockAudit) *ComplaintService {
	if users == nil {
		users = &mockComplaintUsers{users: map[string]*models.User{}}
	}
	return NewComplaintService(repo, users, assigner, audit, validator.New(), zap.NewNop())
}

func validCreateRequest() ComplaintCreateRequest {
	return ComplaintCreateRequest{
		Title:       "Unpaid overtime for months",
		Description: "Overtime hours have gone unpaid since January despite repeated claims.",
		Category:    models.CategoryNonPayment,
		Priority:    models.PriorityHigh,
	}
}

func TestComplaintCreateGeneratesTrackingCode(t *testing.T) {
	supervisor := "sup-1"
	repo := &mockComplaintRepo{yearCount: 41}
	audit := &mockAudit{}
	svc := newComplaintService(repo, &mockAssigner{supervisorID: &supervisor}, nil, audit)

	complaint, err := svc.Create(context.Background(), "rep-1", validCreateRequest())
	require.NoError(t, err)
	expected := fmt.Sprintf("REP-%d-0042", time.Now().UTC().Year())
	assert.Equal(t, expected, complaint.AnonymousCode)
	assert.Equal(t, models.ComplaintPending, complaint.Status)
	require.NotNil(t, complaint.SupervisorID)
	assert.Equal(t, "sup-1", *complaint.SupervisorID)
}

func TestComplaintCreateSurvivesAssignmentFailure(t *testing.T) {
	repo := &mockComplaintRepo{}
	svc := newComplaintService(repo, &mockAssigner{err: errors.New("routing down")}, nil, &mockAudit{})

	complaint, err := svc.Create(context.Background(), "rep-1", validCreateRequest())
	require.NoError(t, err)
	assert.Nil(t, complaint.SupervisorID)
}

func TestComplaintListScopesReporter(t *testing.T) {
	repo := &mockComplaintRepo{}
	svc := newComplaintService(repo, &mockAssigner{}, nil, &mockAudit{})

	_, _, err := svc.List(context.Background(), "rep-1", models.RoleReporter, models.ComplaintFilter{SupervisorID: "sneaky"})
	require.NoError(t, err)
	assert.Equal(t, "rep-1", repo.lastFilter.ReporterID)
	assert.Empty(t, repo.lastFilter.SupervisorID)
}

func TestComplaintListScopesSupervisor(t *testing.T) {
	repo := &mockComplaintRepo{}
	svc := newComplaintService(repo, &mockAssigner{}, nil, &mockAudit{})

	_, _, err := svc.List(context.Background(), "sup-1", models.RoleSupervisor, models.ComplaintFilter{})
	require.NoError(t, err)
	assert.Equal(t, "sup-1", repo.lastFilter.SupervisorID)
}

func TestComplaintGetForbiddenForOtherReporter(t *testing.T) {
	owner := "rep-1"
	repo := &mockComplaintRepo{complaints: map[string]*models.Complaint{
		"c1": {ID: "c1", ReporterID: &owner},
	}}
	svc := newComplaintService(repo, &mockAssigner{}, nil, &mockAudit{})

	_, err := svc.Get(context.Background(), "rep-2", models.RoleReporter, "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestComplaintUpdateStatusRequiresAssignedSupervisor(t *testing.T) {
	assigned := "sup-1"
	repo := &mockComplaintRepo{complaints: map[string]*models.Complaint{
		"c1": {ID: "c1", Status: models.ComplaintPending, SupervisorID: &assigned},
	}}
	svc := newComplaintService(repo, &mockAssigner{}, nil, &mockAudit{})

	_, err := svc.UpdateStatus(context.Background(), "sup-2", models.RoleSupervisor, "c1", models.ComplaintInReview)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.UpdateStatus(context.Background(), "sup-1", models.RoleSupervisor, "c1", models.ComplaintInReview)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintInReview, updated.Status)
}

func TestComplaintUpdateStatusRejectsUnknownState(t *testing.T) {
	svc := newComplaintService(&mockComplaintRepo{}, &mockAssigner{}, nil, &mockAudit{})

	_, err := svc.UpdateStatus(context.Background(), "admin-1", models.RoleAdmin, "c1", "BANANA")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestComplaintReassignValidatesSupervisor(t *testing.T) {
	repo := &mockComplaintRepo{complaints: map[string]*models.Complaint{
		"c1": {ID: "c1", Status: models.ComplaintPending},
	}}
	users := &mockComplaintUsers{users: map[string]*models.User{
		"sup-ok":   {ID: "sup-ok", Role: models.RoleSupervisor, Status: models.StatusActive},
		"inactive": {ID: "inactive", Role: models.RoleSupervisor, Status: models.StatusInactive},
	}}
	audit := &mockAudit{}
	svc := newComplaintService(repo, &mockAssigner{}, users, audit)

	_, err := svc.Reassign(context.Background(), "admin-1", "c1", "inactive")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	updated, err := svc.Reassign(context.Background(), "admin-1", "c1", "sup-ok")
	require.NoError(t, err)
	require.NotNil(t, updated.SupervisorID)
	assert.Equal(t, "sup-ok", *updated.SupervisorID)
	assert.Equal(t, models.AuditActionAssign, audit.lastAction())
}
