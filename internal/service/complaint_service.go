package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozsegura/vozsegura-api/internal/models"
	appErrors "github.com/vozsegura/vozsegura-api/pkg/errors"
)

type complaintRepository interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	CountCreatedInYear(ctx context.Context, year int) (int, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error
	AssignSupervisor(ctx context.Context, id string, supervisorID *string) error
}

type supervisorAssigner interface {
	Assign(ctx context.Context, category models.Category) (*string, error)
}

type complaintUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ComplaintCreateRequest carries the payload for filing a complaint.
type ComplaintCreateRequest struct {
	Title       string          `json:"title" validate:"required,min=5"`
	Description string          `json:"description" validate:"required,min=20"`
	Category    models.Category `json:"category" validate:"required,oneof=HARASSMENT DISCRIMINATION NON_PAYMENT SEXUAL_HARASSMENT RIGHTS_VIOLATION OTHER"`
	Priority    models.Priority `json:"priority" validate:"min=0,max=3"`
	Location    string          `json:"location"`
}

// ComplaintService implements case intake and the routing decisions around
// it. Every filed case gets an anonymous tracking code and, when possible,
// a supervisor picked by the assignment service.
type ComplaintService struct {
	repo      complaintRepository
	users     complaintUserRepository
	assigner  supervisorAssigner
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComplaintService constructs a ComplaintService instance.
func NewComplaintService(repo complaintRepository, users complaintUserRepository, assigner supervisorAssigner, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ComplaintService{repo: repo, users: users, assigner: assigner, audit: audit, validator: validate, logger: logger}
}

// Create files a new complaint for a reporter. The anonymous code has the
// form REP-YYYY-NNNN where NNNN restarts each calendar year.
func (s *ComplaintService) Create(ctx context.Context, reporterID string, req ComplaintCreateRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}

	now := time.Now().UTC()
	count, err := s.repo.CountCreatedInYear(ctx, now.Year())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive tracking code")
	}
	code := fmt.Sprintf("REP-%d-%04d", now.Year(), count+1)

	supervisorID, err := s.assigner.Assign(ctx, req.Category)
	if err != nil {
		// Intake must not fail because routing did; the case is filed
		// unassigned and picked up manually.
		s.logger.Warn("supervisor assignment failed during intake", zap.Error(err))
		supervisorID = nil
	}

	complaint := &models.Complaint{
		AnonymousCode: code,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Status:        models.ComplaintPending,
		ReporterID:    &reporterID,
		SupervisorID:  supervisorID,
	}
	if req.Location != "" {
		complaint.Location = &req.Location
	}

	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create complaint")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &reporterID,
		Action:        models.AuditActionComplaintFile,
		ResourceTable: strPtr("complaints"),
		ResourceID:    &complaint.ID,
		Detail:        []byte(fmt.Sprintf(`{"anonymous_code":%q}`, code)),
		Success:       true,
	})
	if supervisorID != nil {
		s.audit.Record(ctx, &models.AuditEntry{
			Action:        models.AuditActionAssign,
			ResourceTable: strPtr("complaints"),
			ResourceID:    &complaint.ID,
			Detail:        []byte(fmt.Sprintf(`{"supervisor_id":%q,"automatic":true}`, *supervisorID)),
			Success:       true,
		})
	}

	return complaint, nil
}

// List returns complaints visible to the caller. Reporters see only their
// own cases, supervisors only cases assigned to them, admins everything.
func (s *ComplaintService) List(ctx context.Context, viewerID string, viewerRole models.UserRole, filter models.ComplaintFilter) ([]models.Complaint, *models.Pagination, error) {
	switch viewerRole {
	case models.RoleReporter:
		filter.ReporterID = viewerID
		filter.SupervisorID = ""
	case models.RoleSupervisor:
		filter.SupervisorID = viewerID
		filter.ReporterID = ""
	}

	complaints, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list complaints")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return complaints, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns one complaint after checking the caller may see it.
func (s *ComplaintService) Get(ctx context.Context, viewerID string, viewerRole models.UserRole, id string) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}

	if !s.canView(complaint, viewerID, viewerRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "complaint is not visible to this account")
	}

	return complaint, nil
}

// UpdateStatus moves a case through its lifecycle. The assigned supervisor
// or an admin may do this.
func (s *ComplaintService) UpdateStatus(ctx context.Context, actorID string, actorRole models.UserRole, id string, status models.ComplaintStatus) (*models.Complaint, error) {
	if !validStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown complaint status")
	}

	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}

	if actorRole != models.RoleAdmin {
		if complaint.SupervisorID == nil || *complaint.SupervisorID != actorID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned supervisor can change this case")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update complaint status")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionStatusChange,
		ResourceTable: strPtr("complaints"),
		ResourceID:    &id,
		Detail:        []byte(fmt.Sprintf(`{"from":%q,"to":%q}`, complaint.Status, status)),
		Success:       true,
	})

	complaint.Status = status
	return complaint, nil
}

// Reassign hands a case to a different supervisor. Admin only; enforced at
// the routing layer.
func (s *ComplaintService) Reassign(ctx context.Context, actorID, id, supervisorID string) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load complaint")
	}

	supervisor, err := s.users.FindByID(ctx, supervisorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "supervisor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor")
	}
	if supervisor.Role != models.RoleSupervisor || supervisor.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target account is not an active supervisor")
	}

	if err := s.repo.AssignSupervisor(ctx, id, &supervisorID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign complaint")
	}

	s.audit.Record(ctx, &models.AuditEntry{
		ActorID:       &actorID,
		Action:        models.AuditActionAssign,
		ResourceTable: strPtr("complaints"),
		ResourceID:    &id,
		Detail:        []byte(fmt.Sprintf(`{"supervisor_id":%q,"automatic":false}`, supervisorID)),
		Success:       true,
	})

	complaint.SupervisorID = &supervisorID
	return complaint, nil
}

func (s *ComplaintService) canView(complaint *models.Complaint, viewerID string, viewerRole models.UserRole) bool {
	switch viewerRole {
	case models.RoleAdmin:
		return true
	case models.RoleSupervisor:
		return complaint.SupervisorID != nil && *complaint.SupervisorID == viewerID
	case models.RoleReporter:
		return complaint.ReporterID != nil && *complaint.ReporterID == viewerID
	default:
		return false
	}
}

func validStatus(status models.ComplaintStatus) bool {
	switch status {
	case models.ComplaintPending, models.ComplaintInReview, models.ComplaintApproved,
		models.ComplaintReferred, models.ComplaintClosed, models.ComplaintRejected:
		return true
	default:
		return false
	}
}
