package models

import "time"

// AuditAction constants represent actions to be logged. The set is closed;
// new actions require a new constant here.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLoginFailed    = "LOGIN_FAILED"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPasswordReset  = "PASSWORD_RESET"
	AuditActionRecoveryStart  = "PASSWORD_RECOVERY_REQUEST"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDeactivate = "USER_DEACTIVATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionComplaintFile  = "COMPLAINT_FILE"
	AuditActionComplaintView  = "COMPLAINT_VIEW"
	AuditActionStatusChange   = "COMPLAINT_STATUS_CHANGE"
	AuditActionAssign         = "COMPLAINT_ASSIGN"
	AuditActionRuleCreate     = "RULE_CREATE"
	AuditActionRuleUpdate     = "RULE_UPDATE"
	AuditActionRuleDeactivate = "RULE_DEACTIVATE"
	AuditActionAuditQuery     = "AUDIT_QUERY"
	AuditActionAuditExport    = "AUDIT_EXPORT"
)

// AuditEntry is one immutable record of a security-relevant action.
// The table is append-only; no update or delete path exists at any layer.
type AuditEntry struct {
	ID            string    `db:"id" json:"id"`
	ActorID       *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action        string    `db:"action" json:"action"`
	ResourceTable *string   `db:"resource_table" json:"resource_table,omitempty"`
	ResourceID    *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail        []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress     string    `db:"ip_address" json:"ip_address"`
	UserAgent     string    `db:"user_agent" json:"user_agent"`
	Success       bool      `db:"success" json:"success"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter captures the query surface of the audit trail.
type AuditFilter struct {
	ActorID       string
	Action        string
	ResourceTable string
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}
