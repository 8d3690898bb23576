package models

import "time"

// ComplaintStatus is the case lifecycle state.
type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "PENDING"
	ComplaintInReview ComplaintStatus = "IN_REVIEW"
	ComplaintApproved ComplaintStatus = "APPROVED"
	ComplaintReferred ComplaintStatus = "REFERRED"
	ComplaintClosed   ComplaintStatus = "CLOSED"
	ComplaintRejected ComplaintStatus = "REJECTED"
)

// OpenStatuses are the states that count toward a supervisor's load.
var OpenStatuses = []ComplaintStatus{ComplaintPending, ComplaintInReview}

// Complaint is a filed case. The control plane writes SupervisorID once at
// creation (and again on explicit re-assignment); everything else belongs to
// the case-management surface.
type Complaint struct {
	ID            string          `db:"id" json:"id"`
	AnonymousCode string          `db:"anonymous_code" json:"anonymous_code"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Category      Category        `db:"category" json:"category"`
	Priority      Priority        `db:"priority" json:"priority"`
	Status        ComplaintStatus `db:"status" json:"status"`
	Location      *string         `db:"location" json:"location,omitempty"`
	ReporterID    *string         `db:"reporter_id" json:"reporter_id,omitempty"`
	SupervisorID  *string         `db:"supervisor_id" json:"supervisor_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// SupervisorLoad pairs a supervisor with their open case count, used by the
// least-loaded fallback.
type SupervisorLoad struct {
	SupervisorID string `db:"supervisor_id" json:"supervisor_id"`
	OpenCases    int    `db:"open_cases" json:"open_cases"`
}

// ComplaintFilter captures the role-scoped listing surface.
type ComplaintFilter struct {
	Status       *ComplaintStatus
	Category     *Category
	ReporterID   string
	SupervisorID string
	Search       string
	Page         int
	PageSize     int
}
