package models

import "time"

// Category is the closed set of complaint categories used for routing.
type Category string

const (
	CategoryHarassment       Category = "HARASSMENT"
	CategoryDiscrimination   Category = "DISCRIMINATION"
	CategoryNonPayment       Category = "NON_PAYMENT"
	CategorySexualHarassment Category = "SEXUAL_HARASSMENT"
	CategoryRightsViolation  Category = "RIGHTS_VIOLATION"
	CategoryOther            Category = "OTHER"
)

// Priority is ordinal: higher values win when multiple rules match.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

// AssignmentRule maps a (category, priority) pair to a handling supervisor.
// At most one active rule may exist per pair; enforced at write time.
type AssignmentRule struct {
	ID           string    `db:"id" json:"id"`
	Label        string    `db:"label" json:"label"`
	Description  *string   `db:"description" json:"description,omitempty"`
	Category     Category  `db:"category" json:"category"`
	Priority     Priority  `db:"priority" json:"priority"`
	SupervisorID string    `db:"supervisor_id" json:"supervisor_id"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
