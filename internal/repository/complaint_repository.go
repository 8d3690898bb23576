package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vozsegura/vozsegura-api/internal/models"
)

// ComplaintRepository provides database access for complaints.
type ComplaintRepository struct {
	db *sqlx.DB
}

// NewComplaintRepository creates a new instance of ComplaintRepository.
func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

const complaintColumns = `id, anonymous_code, title, description, category, priority, status, location, reporter_id, supervisor_id, created_at, updated_at`

// Create inserts a new complaint.
func (r *ComplaintRepository) Create(ctx context.Context, complaint *models.Complaint) error {
	if complaint.ID == "" {
		complaint.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if complaint.CreatedAt.IsZero() {
		complaint.CreatedAt = now
	}
	complaint.UpdatedAt = now

	const query = `INSERT INTO complaints (id, anonymous_code, title, description, category, priority, status, location, reporter_id, supervisor_id, created_at, updated_at) VALUES (:id, :anonymous_code, :title, :description, :category, :priority, :status, :location, :reporter_id, :supervisor_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, complaint); err != nil {
		return fmt.Errorf("create complaint: %w", err)
	}
	return nil
}

// FindByID returns a complaint by identifier.
func (r *ComplaintRepository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE id = $1 LIMIT 1`, complaintColumns)
	var complaint models.Complaint
	if err := r.db.GetContext(ctx, &complaint, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find complaint by id: %w", err)
	}
	return &complaint, nil
}

// CountCreatedInYear returns how many complaints were filed in a calendar
// year, used to derive the next anonymous code sequence number.
func (r *ComplaintRepository) CountCreatedInYear(ctx context.Context, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM complaints WHERE EXTRACT(YEAR FROM created_at) = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, year); err != nil {
		return 0, fmt.Errorf("count complaints in year: %w", err)
	}
	return count, nil
}

// List returns complaints based on filters with total count.
func (r *ComplaintRepository) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, int, error) {
	baseQuery := `FROM complaints WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.ReporterID != "" {
		conditions = append(conditions, fmt.Sprintf("reporter_id = $%d", len(args)+1))
		args = append(args, filter.ReporterID)
	}
	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR anonymous_code = $%d)", len(args)+1, len(args)+2))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%", filter.Search)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", complaintColumns, baseQuery, pageSize, offset)

	var complaints []models.Complaint
	if err := r.db.SelectContext(ctx, &complaints, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list complaints: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count complaints: %w", err)
	}

	return complaints, total, nil
}

// UpdateStatus moves a complaint to a new lifecycle state.
func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error {
	const query = `UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	return nil
}

// AssignSupervisor sets the handling supervisor for a complaint.
func (r *ComplaintRepository) AssignSupervisor(ctx context.Context, id string, supervisorID *string) error {
	const query = `UPDATE complaints SET supervisor_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, supervisorID, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign supervisor: %w", err)
	}
	return nil
}

// OpenCaseLoads returns every active supervisor with their open case count,
// least loaded first, ties broken by supervisor id so repeated calls with the
// same state pick the same supervisor.
func (r *ComplaintRepository) OpenCaseLoads(ctx context.Context) ([]models.SupervisorLoad, error) {
	const query = `SELECT u.id AS supervisor_id, COUNT(c.id) AS open_cases FROM users u LEFT JOIN complaints c ON c.supervisor_id = u.id AND c.status IN ('PENDING', 'IN_REVIEW') WHERE u.role = 'SUPERVISOR' AND u.status = 'ACTIVE' GROUP BY u.id ORDER BY open_cases ASC, u.id ASC`
	var loads []models.SupervisorLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("open case loads: %w", err)
	}
	return loads, nil
}
